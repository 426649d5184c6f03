package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/nextolk/backend/internal/dto"
	"github.com/spf13/cobra"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Browse and list shop products",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		seller, _ := cmd.Flags().GetUint("seller")
		category, _ := cmd.Flags().GetUint("category")
		query, _ := cmd.Flags().GetString("search")

		req := pageParams(client().R(), limit, offset)
		if seller != 0 {
			req.SetQueryParam("seller_id", strconv.FormatUint(uint64(seller), 10))
		}
		if category != 0 {
			req.SetQueryParam("category", strconv.FormatUint(uint64(category), 10))
		}
		if query != "" {
			req.SetQueryParam("search", query)
		}

		var products []dto.ProductResponse
		if err := do(req, http.MethodGet, "/api/eshop/products/", &products); err != nil {
			return err
		}
		return printProducts(products)
	},
}

var productsCreateCmd = &cobra.Command{
	Use:   "create <name> <price>",
	Short: "List a product for sale",
	Example: `  nextolk products create "Ring light" 19.99 --stock 5 --category 2
  nextolk products create "Tripod" 12 --image ./tripod.jpg`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields := map[string]string{"name": args[0], "price": args[1]}
		if d, _ := cmd.Flags().GetString("description"); d != "" {
			fields["description"] = d
		}
		if cmd.Flags().Changed("stock") {
			stock, _ := cmd.Flags().GetInt("stock")
			fields["stock"] = strconv.Itoa(stock)
		}
		if category, _ := cmd.Flags().GetUint("category"); category != 0 {
			fields["category"] = strconv.FormatUint(uint64(category), 10)
		}
		if cmd.Flags().Changed("unavailable") {
			fields["is_available"] = "false"
		}

		req := client().R()
		if image, _ := cmd.Flags().GetString("image"); image != "" {
			req.SetFile("image", image).SetFormData(fields)
		} else {
			req.SetBody(fields)
		}

		var product dto.ProductResponse
		if err := do(req, http.MethodPost, "/api/eshop/products/", &product); err != nil {
			return err
		}
		if output == "json" {
			return printJSON(product)
		}
		printSuccess("Created product %d: %s at %s", product.ID, product.Name, product.Price)
		return nil
	},
}

func init() {
	productsListCmd.Flags().IntP("limit", "l", 20, "Maximum number of results")
	productsListCmd.Flags().IntP("offset", "o", 0, "Result offset for pagination")
	productsListCmd.Flags().Uint("seller", 0, "Only products sold by this user id")
	productsListCmd.Flags().Uint("category", 0, "Only products in this category id")
	productsListCmd.Flags().String("search", "", "Match name or description")

	productsCreateCmd.Flags().String("description", "", "Product description")
	productsCreateCmd.Flags().Int("stock", 1, "Units in stock")
	productsCreateCmd.Flags().Uint("category", 0, "Category id")
	productsCreateCmd.Flags().String("image", "", "Path to a product image")
	productsCreateCmd.Flags().Bool("unavailable", false, "List the product as not available")

	productsCmd.AddCommand(productsListCmd)
	productsCmd.AddCommand(productsCreateCmd)
}

func printProducts(products []dto.ProductResponse) error {
	if output == "json" {
		return printJSON(products)
	}
	if len(products) == 0 {
		printWarning("no products")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK\tSELLER\tCATEGORY")
	for _, p := range products {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n", p.ID, p.Name, p.Price, p.Stock, p.SellerUsername, deref(p.CategoryName))
	}
	return w.Flush()
}
