package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// ----------------------------------------------------------------------------
// Config ---------------------------------------------------------------------
var (
	baseURL    = flag.String("url", env("API_BASE_URL", "http://localhost:8080"), "Server base URL")
	sellerMail = flag.String("seller", env("SELLER_EMAIL", "seller@example.com"), "Seller e-mail")
	pass       = flag.String("pass", env("PASSWORD", "Password123"), "Password for every seeded account")
	nProducts  = flag.Int("products", envInt("PRODUCTS", 50), "How many products to create")
	nReviewers = flag.Int("reviewers", envInt("REVIEWERS", 10), "How many reviewing customers to create")
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		i, err := fmt.Sscan(v, &i)
		if err != nil {
			return def
		}
		if i > 0 {
			return i
		}
	}
	return def
}

var categories = []string{"electronics", "books", "clothing", "home", "sports"}

// ----------------------------------------------------------------------------
// HTTP helpers ---------------------------------------------------------------
func doJSON(method, path string, body any, hdr map[string]string) (*http.Response, error) {
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(method, *baseURL+path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	return http.DefaultClient.Do(req)
}

func must(body io.ReadCloser) []byte {
	defer body.Close()
	data, _ := io.ReadAll(body)
	return data
}

// ----------------------------------------------------------------------------
// Main -----------------------------------------------------------------------
func main() {
	flag.Parse()
	gofakeit.Seed(time.Now().UnixNano())

	fmt.Printf("Seeding %s: %d products, %d reviewers\n", *baseURL, *nProducts, *nReviewers)

	sellerToken, err := ensureAccount("/api/v1/sellers", *sellerMail, "Seed Seller")
	if err != nil {
		fmt.Fprintln(os.Stderr, "FATAL:", err)
		os.Exit(1)
	}

	productIDs, err := createProducts(sellerToken, *nProducts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "FATAL:", err)
		os.Exit(1)
	}

	if err := createReviews(productIDs, *nReviewers); err != nil {
		fmt.Fprintln(os.Stderr, "FATAL:", err)
		os.Exit(1)
	}

	fmt.Println("✔ done")
}

// ----------------------------------------------------------------------------
// Step 1 – make sure an account exists ---------------------------------------
func ensureAccount(prefix, email, name string) (string, error) {
	payload := map[string]string{"name": name, "email": email, "password": *pass}

	// Try registration first …
	if resp, err := doJSON(http.MethodPost, prefix+"/register", payload, nil); err == nil && resp.StatusCode < 300 {
		var r struct {
			Token string `json:"token"`
		}
		_ = json.Unmarshal(must(resp.Body), &r)
		fmt.Printf("• registered %s\n", email)
		return r.Token, nil
	}

	// … otherwise fall back to login.
	resp, err := doJSON(http.MethodPost, prefix+"/login", map[string]string{"email": email, "password": *pass}, nil)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login %s failed (%d): %s", email, resp.StatusCode, must(resp.Body))
	}
	var r struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(must(resp.Body), &r)
	fmt.Printf("• logged in %s\n", email)
	return r.Token, nil
}

// ----------------------------------------------------------------------------
// Step 2 – create products ----------------------------------------------------
func createProducts(token string, total int) ([]string, error) {
	h := map[string]string{"Authorization": "Bearer " + token}
	ids := make([]string, 0, total)

	for i := 1; i <= total; i++ {
		product := map[string]any{
			"name":        gofakeit.ProductName(),
			"description": gofakeit.Paragraph(1, 3, 40, " "),
			"price":       gofakeit.Price(5, 500),
			"stock":       gofakeit.Number(0, 200),
			"category":    categories[gofakeit.Number(0, len(categories)-1)],
		}

		resp, err := doJSON(http.MethodPost, "/api/v1/products", product, h)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusCreated {
			return nil, fmt.Errorf("create product %d failed (%d): %s", i, resp.StatusCode, must(resp.Body))
		}

		var r struct {
			Product struct {
				ID string `json:"id"`
			} `json:"product"`
		}
		_ = json.Unmarshal(must(resp.Body), &r)
		ids = append(ids, r.Product.ID)

		if i%25 == 0 || i == total {
			fmt.Printf("  … %d/%d products\n", i, total)
		}
	}
	return ids, nil
}

// ----------------------------------------------------------------------------
// Step 3 – register customers and scatter reviews -----------------------------
func createReviews(productIDs []string, reviewers int) error {
	for i := 1; i <= reviewers; i++ {
		email := fmt.Sprintf("reviewer%d@example.com", i)
		token, err := ensureAccount("/api/v1", email, gofakeit.Name())
		if err != nil {
			return err
		}
		h := map[string]string{"Authorization": "Bearer " + token}

		// Each reviewer rates roughly a third of the catalog.
		for _, id := range productIDs {
			if gofakeit.Number(0, 2) != 0 {
				continue
			}
			review := map[string]any{
				"product_id": id,
				"rating":     gofakeit.Number(1, 5),
				"comment":    gofakeit.Sentence(8),
			}
			resp, err := doJSON(http.MethodPut, "/api/v1/products/review", review, h)
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("review by %s failed (%d): %s", email, resp.StatusCode, must(resp.Body))
			}
			_ = must(resp.Body)
		}
		fmt.Printf("  … reviewer %d/%d\n", i, reviewers)
	}
	return nil
}
