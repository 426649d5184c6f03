package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	authToken string
	apiURL    string = "http://localhost:8787"
	output    string = "text" // "text" or "json"
)

// publicAnnotation marks commands that work without a token
const publicAnnotation = "public"

var rootCmd = &cobra.Command{
	Use:   "nextolk",
	Short: "Nextolk CLI - talk to a Nextolk API server",
	Long: `Nextolk CLI provides command-line access to a Nextolk account.
Log in, browse and upload videos, follow people and manage shop products.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if authToken == "" {
			authToken = os.Getenv("NEXTOLK_TOKEN")
		}
		if envURL := os.Getenv("NEXTOLK_API"); envURL != "" && !cmd.Flags().Changed("api") {
			apiURL = envURL
		}
		if output != "text" && output != "json" {
			return fmt.Errorf("unknown output format %q", output)
		}
		if authToken == "" && cmd.Annotations[publicAnnotation] == "" && cmd.Name() != "help" {
			return fmt.Errorf("NEXTOLK_TOKEN is not set; run `nextolk login` and export the token it prints")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "Access token (defaults to NEXTOLK_TOKEN env var)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", apiURL, "API server URL (defaults to NEXTOLK_API env var)")
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")

	// Add command groups
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(otpCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(videosCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(searchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
