package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

type tokenPair struct {
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

var loginCmd = &cobra.Command{
	Use:         "login <username>",
	Short:       "Get an access token",
	Long:        "Log in and print the access token. Export it as NEXTOLK_TOKEN for the other commands.",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{publicAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("NEXTOLK_PASSWORD")
		}
		if password == "" {
			return fmt.Errorf("--password or NEXTOLK_PASSWORD is required")
		}

		var tokens tokenPair
		req := client().R().SetBody(map[string]string{"username": args[0], "password": password})
		if err := do(req, http.MethodPost, "/api/token/", &tokens); err != nil {
			return err
		}
		if output == "json" {
			return printJSON(tokens)
		}
		printSuccess("Logged in as %s (id %d)", tokens.Username, tokens.UserID)
		fmt.Printf("export NEXTOLK_TOKEN=%s\n", tokens.Access)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:         "register <username>",
	Short:       "Create an account",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{publicAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		email, _ := cmd.Flags().GetString("email")
		if password == "" {
			return fmt.Errorf("--password is required")
		}

		var user struct {
			ID       uint   `json:"id"`
			Username string `json:"username"`
			Email    string `json:"email"`
		}
		req := client().R().SetBody(map[string]string{"username": args[0], "email": email, "password": password})
		if err := do(req, http.MethodPost, "/api/register/", &user); err != nil {
			return err
		}
		if output == "json" {
			return printJSON(user)
		}
		printSuccess("Registered %s (id %d)", user.Username, user.ID)
		return nil
	},
}

var otpCmd = &cobra.Command{
	Use:   "otp",
	Short: "Phone number verification",
}

var otpRequestCmd = &cobra.Command{
	Use:         "request <phone>",
	Short:       "Send a one-time code to a phone number",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{publicAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var res map[string]string
		req := client().R().SetBody(map[string]string{"phone_number": args[0]})
		if err := do(req, http.MethodPost, "/api/request-otp/", &res); err != nil {
			return err
		}
		if output == "json" {
			return printJSON(res)
		}
		printSuccess("%s", res["message"])
		if code := res["otp"]; code != "" {
			printWarning("debug server echoed the code: %s", code)
		}
		return nil
	},
}

var otpVerifyCmd = &cobra.Command{
	Use:         "verify <phone> <code>",
	Short:       "Check a one-time code",
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{publicAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var res map[string]string
		req := client().R().SetBody(map[string]string{"phone_number": args[0], "otp": args[1]})
		if err := do(req, http.MethodPost, "/api/verify-otp/", &res); err != nil {
			return err
		}
		if output == "json" {
			return printJSON(res)
		}
		printSuccess("%s", res["message"])
		return nil
	},
}

func init() {
	loginCmd.Flags().StringP("password", "p", "", "Password (defaults to NEXTOLK_PASSWORD env var)")
	registerCmd.Flags().StringP("password", "p", "", "Password")
	registerCmd.Flags().StringP("email", "e", "", "Email address")

	otpCmd.AddCommand(otpRequestCmd)
	otpCmd.AddCommand(otpVerifyCmd)
}
