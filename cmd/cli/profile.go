package main

import (
	"fmt"
	"net/http"

	"github.com/nextolk/backend/internal/dto"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "View and edit profiles",
}

var profileMeCmd = &cobra.Command{
	Use:   "me",
	Short: "Show your own profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := currentProfile()
		if err != nil {
			return err
		}
		return printProfile(profile)
	},
}

var profileGetCmd = &cobra.Command{
	Use:   "get <profile-id>",
	Short: "Show a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var profile dto.ProfileResponse
		if err := do(client().R(), http.MethodGet, "/api/profiles/"+args[0]+"/", &profile); err != nil {
			return err
		}
		return printProfile(&profile)
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change your bio or profile picture",
	Example: `  nextolk profile update --bio "dancer from Lagos"
  nextolk profile update --picture ./me.png`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bio, _ := cmd.Flags().GetString("bio")
		picture, _ := cmd.Flags().GetString("picture")
		if !cmd.Flags().Changed("bio") && picture == "" {
			return fmt.Errorf("nothing to update; pass --bio or --picture")
		}

		me, err := currentProfile()
		if err != nil {
			return err
		}

		req := client().R()
		if picture != "" {
			req.SetFile("profile_picture", picture)
			if cmd.Flags().Changed("bio") {
				req.SetFormData(map[string]string{"bio": bio})
			}
		} else {
			req.SetBody(map[string]string{"bio": bio})
		}

		var updated dto.ProfileResponse
		if err := do(req, http.MethodPatch, fmt.Sprintf("/api/profiles/%d/", me.ID), &updated); err != nil {
			return err
		}
		return printProfile(&updated)
	},
}

func init() {
	profileUpdateCmd.Flags().String("bio", "", "New bio (at most 500 characters)")
	profileUpdateCmd.Flags().String("picture", "", "Path to a new profile picture")

	profileCmd.AddCommand(profileMeCmd)
	profileCmd.AddCommand(profileGetCmd)
	profileCmd.AddCommand(profileUpdateCmd)
}

func currentProfile() (*dto.ProfileResponse, error) {
	var profile dto.ProfileResponse
	if err := do(client().R(), http.MethodGet, "/api/profiles/current_user/", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func printProfile(p *dto.ProfileResponse) error {
	if output == "json" {
		return printJSON(p)
	}
	fmt.Printf("Profile %d: %s (user %d)\n", p.ID, p.User, p.UserID)
	printField("Followers", p.FollowerCount)
	printField("Following", p.FollowingCount)
	if p.Bio != "" {
		printField("Bio", p.Bio)
	}
	if url := deref(p.ProfilePictureURL); url != "" {
		printField("Picture", url)
	}
	return nil
}
