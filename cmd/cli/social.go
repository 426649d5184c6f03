package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/nextolk/backend/internal/dto"
	"github.com/spf13/cobra"
)

var followCmd = &cobra.Command{
	Use:   "follow <user-id>",
	Short: "Follow a user, or unfollow when already following",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || id == 0 {
			return fmt.Errorf("invalid user id %q", args[0])
		}

		var res dto.FollowResponse
		req := client().R().SetBody(dto.FollowRequest{FollowingID: uint(id)})
		if err := do(req, http.MethodPost, "/api/follow/", &res); err != nil {
			return err
		}
		if output == "json" {
			return printJSON(res)
		}
		printSuccess("%s user %d", res.Status, id)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search videos or products",
	Example: `  nextolk search dance
  nextolk search "ring light" --type products`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		req := pageParams(client().R(), limit, offset).
			SetQueryParams(map[string]string{"q": args[0], "type": kind})

		switch kind {
		case "products":
			var res struct {
				Backend string                `json:"backend"`
				Total   int64                 `json:"total"`
				Results []dto.ProductResponse `json:"results"`
			}
			if err := do(req, http.MethodGet, "/api/search/", &res); err != nil {
				return err
			}
			if output == "json" {
				return printJSON(res)
			}
			printInfo("%d products (%s)", res.Total, res.Backend)
			return printProducts(res.Results)
		default:
			var res struct {
				Backend string              `json:"backend"`
				Total   int64               `json:"total"`
				Results []dto.VideoResponse `json:"results"`
			}
			if err := do(req, http.MethodGet, "/api/search/", &res); err != nil {
				return err
			}
			if output == "json" {
				return printJSON(res)
			}
			printInfo("%d videos (%s)", res.Total, res.Backend)
			return printVideos(res.Results)
		}
	},
}

func init() {
	searchCmd.Flags().StringP("type", "t", "videos", "What to search: videos or products")
	searchCmd.Flags().IntP("limit", "l", 20, "Maximum number of results")
	searchCmd.Flags().IntP("offset", "o", 0, "Result offset for pagination")
}
