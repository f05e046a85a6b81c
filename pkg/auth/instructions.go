package auth

import (
	"fmt"
	"strings"
)

// ShowTokenGuide prints where to find the actor API token and how to store it
func ShowTokenGuide() {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("ACTOR API TOKEN")
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println()
	fmt.Println("reelscraper calls a hosted scraping actor and needs its API token.")
	fmt.Println()
	fmt.Println("1. Sign in to the actor platform console (https://console.apify.com)")
	fmt.Println("2. Open Settings > API & Integrations")
	fmt.Println("3. Copy the personal API token")
	fmt.Println()
	fmt.Println("Then either:")
	fmt.Println("   reelscraper auth set            store it in the keychain or encrypted file")
	fmt.Println("   export REELSCRAPER_ACTOR_TOKEN=...  (APIFY_TOKEN also works)")
	fmt.Println()
	fmt.Println("The token grants full access to your actor account; keep it private.")
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println()
}
