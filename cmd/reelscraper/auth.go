package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"reelscraper/pkg/auth"
	"reelscraper/pkg/ui"
)

var (
	// Auth command flags
	tokenFromStdin bool
	forceDelete    bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the actor API token",
	Long: `Manage stored actor API tokens.

Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables REELSCRAPER_ACTOR_TOKEN or APIFY_TOKEN (read only)

A token in the configuration or environment always wins over a stored one.`,
}

// authSetCmd represents the auth set command
var authSetCmd = &cobra.Command{
	Use:   "set [name]",
	Short: "Store an actor API token",
	Long: `Store an actor API token in the system keychain or encrypted file.

The token is read from the terminal without echo, or from standard input
with --stdin. Without a name it is stored as "default", the token used by
'reelscraper run'.`,
	Example: `  # Interactive
  reelscraper auth set

  # From a secret manager
  vault read -field=token secret/apify | reelscraper auth set --stdin`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthSet,
}

// authShowCmd represents the auth show command
var authShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List stored tokens, masked",
	Args:  cobra.NoArgs,
	RunE:  runAuthShow,
}

// authDeleteCmd represents the auth delete command
var authDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Remove a stored token",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthDelete,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authShowCmd)
	authCmd.AddCommand(authDeleteCmd)

	authSetCmd.Flags().BoolVar(&tokenFromStdin, "stdin", false, "read the token from standard input")
	authDeleteCmd.Flags().BoolVarP(&forceDelete, "yes", "y", false, "do not ask for confirmation")
}

func credentialName(args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0])
	}
	return auth.DefaultName
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return startupError(fmt.Errorf("failed to initialize credential manager: %w", err))
	}
	name := credentialName(args)

	var token string
	if tokenFromStdin {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read token: %w", err)
		}
		token = strings.TrimSpace(line)
	} else {
		auth.ShowTokenGuide()

		if existing, _ := manager.Retrieve(name); existing != nil && existing.Name == name {
			fmt.Printf("Token '%s' already exists (%s). Replace it? (y/N): ", name, auth.MaskToken(existing.Token))
			reader := bufio.NewReader(os.Stdin)
			input, _ := reader.ReadString('\n')
			if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
				return nil
			}
		}

		fmt.Print("Actor API token (hidden): ")
		token, err = readPassword()
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
	}

	if token == "" {
		return startupError(errors.New("token is empty"))
	}

	if err := manager.Store(&auth.Credential{Name: name, Token: token}); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Token '%s' stored: %s", name, auth.MaskToken(token)))
	return nil
}

func runAuthShow(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return startupError(fmt.Errorf("failed to initialize credential manager: %w", err))
	}

	creds, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list tokens: %w", err)
	}
	if len(creds) == 0 {
		ui.PrintInfo("No stored tokens", "use 'reelscraper auth set' to add one")
		return nil
	}

	active, _ := manager.RetrieveDefault()
	for _, cred := range creds {
		sanitized := auth.Sanitize(cred)
		marker := " "
		if active != nil && active.Name == cred.Name {
			marker = ui.Green("*")
		}
		modified := "-"
		if !sanitized.LastModified.IsZero() {
			modified = sanitized.LastModified.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%s %-12s %s  %s\n", marker, ui.Cyan(sanitized.Name), sanitized.Token, ui.Dim(modified))
	}
	fmt.Println(ui.Dim("\n* token used by 'reelscraper run' when none is configured"))
	return nil
}

func runAuthDelete(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return startupError(fmt.Errorf("failed to initialize credential manager: %w", err))
	}
	name := credentialName(args)

	if !forceDelete {
		fmt.Printf("Remove token '%s'? (y/N): ", name)
		reader := bufio.NewReader(os.Stdin)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	if err := manager.Delete(name); err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			return fmt.Errorf("no stored token named '%s'", name)
		}
		return err
	}
	ui.PrintSuccess("Token removed: " + name)
	return nil
}

// readPassword reads a secret from stdin without echoing
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(password)), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
