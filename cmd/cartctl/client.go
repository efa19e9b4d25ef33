package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorCyan, colorGray, colorBold = "", "", ""
}

// cli holds global flags and the HTTP client shared by all commands.
type cli struct {
	serverURL string
	quiet     bool
	verbose   bool
	noColor   bool

	client *http.Client
	out    io.Writer
}

func newCLI(out io.Writer) *cli {
	return &cli{client: &http.Client{Timeout: 30 * time.Second}, out: out}
}

// Response shapes, decoded loosely so the client tolerates added fields.
type cartLine struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	AuthorName    string `json:"authorName"`
	UnitPrice     int64  `json:"unitPrice"`
	DiscountPrice *int64 `json:"discountPrice"`
	Quantity      int    `json:"quantity"`
}

type cartState struct {
	Lines      []cartLine `json:"lines"`
	TotalItems int        `json:"totalItems"`
	TotalPrice int64      `json:"totalPrice"`
}

type checkoutResult struct {
	Passed bool `json:"passed"`
	Order  *struct {
		OrderID int64 `json:"orderId"`
		Amount  int64 `json:"amount"`
	} `json:"order"`
	Messages []string   `json:"messages"`
	Cart     *cartState `json:"cart"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do sends a request and decodes a 2xx body into out (if non-nil).
func (c *cli) do(method, path string, body, out any) error {
	_, err := c.doStatus(method, path, body, out)
	return err
}

// doStatus is do, additionally treating the listed statuses as decodable
// results instead of errors.
func (c *cli) doStatus(method, path string, body, out any, accept ...int) (int, error) {
	var reqBody io.Reader
	var reqJSON []byte

	if body != nil {
		var err error
		reqJSON, err = json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	req, err := http.NewRequest(method, strings.TrimSuffix(c.serverURL, "/")+path, reqBody)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.verbose {
		c.printRequest(method, path, reqJSON)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}

	if c.verbose {
		c.printResponse(resp.StatusCode, respBody, duration)
	}

	if resp.StatusCode >= 400 && !slices.Contains(accept, resp.StatusCode) {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return resp.StatusCode, fmt.Errorf("%s", apiErr.Error.Message)
		}
		return resp.StatusCode, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, fmt.Errorf("parsing response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func (c *cli) printCart(s cartState) {
	if len(s.Lines) == 0 {
		fmt.Fprintf(c.out, "%scart is empty%s\n", colorGray, colorReset)
		return
	}
	for _, l := range s.Lines {
		price := formatCents(l.UnitPrice)
		if l.DiscountPrice != nil {
			price = fmt.Sprintf("%s (was %s)", formatCents(*l.DiscountPrice), formatCents(l.UnitPrice))
		}
		fmt.Fprintf(c.out, "  %s%6d%s  %-40s %2d × %s\n", colorGray, l.ID, colorReset, truncate(l.Title, 40), l.Quantity, price)
	}
	fmt.Fprintf(c.out, "  %s%d items, total %s%s\n", colorBold, s.TotalItems, formatCents(s.TotalPrice), colorReset)
}

func (c *cli) printRequest(method, path string, body []byte) {
	fmt.Fprintf(c.out, "\n%s▶ REQUEST%s %s%s %s%s\n", colorYellow, colorReset, colorBold, method, path, colorReset)
	if body != nil {
		c.printJSON(body, "  ")
	}
}

func (c *cli) printResponse(status int, body []byte, duration time.Duration) {
	statusColor := colorGreen
	if status >= 400 {
		statusColor = colorRed
	}
	fmt.Fprintf(c.out, "\n%s◀ RESPONSE%s %s%d%s (%v)\n", colorCyan, colorReset, statusColor, status, colorReset, duration)
	c.printJSON(body, "  ")
}

func (c *cli) printJSON(data []byte, prefix string) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, prefix, "  "); err != nil {
		fmt.Fprintf(c.out, "%s%s\n", prefix, string(data))
		return
	}
	fmt.Fprintln(c.out, pretty.String())
}

func (c *cli) success(format string, args ...any) {
	if !c.quiet {
		fmt.Fprintf(c.out, "%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func (c *cli) warning(format string, args ...any) {
	fmt.Fprintf(c.out, "%s⚠ %s%s\n", colorYellow, fmt.Sprintf(format, args...), colorReset)
}

func formatCents(v int64) string {
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	return fmt.Sprintf("%s$%d.%02d", sign, v/100, v%100)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
