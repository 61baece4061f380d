package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/LoanDesk/internal/model"
	"github.com/dharsanguruparan/LoanDesk/internal/pipeline"
	"github.com/dharsanguruparan/LoanDesk/internal/policy"
)

var httpClient = &http.Client{Timeout: 2 * time.Minute}

func newSubmitCmd() *cobra.Command {
	var asPDF bool
	cmd := &cobra.Command{
		Use:   "submit [file]",
		Short: "Submit an application (text file, PDF, or stdin) and print the decision",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				req *http.Request
				err error
			)
			if asPDF {
				if len(args) == 0 {
					return fmt.Errorf("--pdf needs a file argument")
				}
				req, err = pdfRequest(args[0])
			} else {
				req, err = textRequest(cmd.InOrStdin(), args)
			}
			if err != nil {
				return err
			}
			return do(cmd, req.WithContext(cmd.Context()))
		},
	}
	cmd.Flags().BoolVar(&asPDF, "pdf", false, "Upload the file as a PDF")
	return cmd
}

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <request-id>",
		Short: "Print the stored record of a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet,
				endpoint("applications", url.PathEscape(args[0])), nil)
			if err != nil {
				return err
			}
			return do(cmd, req)
		},
	}
}

func newDecideCmd() *cobra.Command {
	var policyPath string
	cmd := &cobra.Command{
		Use:   "decide [input.json]",
		Short: "Evaluate a decision input offline, without any stage services",
		Long: `decide reads a JSON decision input (credit_score, property_value, loan_amount,
monthly_income, monthly_expenses, employment_stable) from a file or stdin and
prints the decision the API would produce for it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			input := model.DecisionInput{EmploymentStable: true}
			if err := json.Unmarshal(data, &input); err != nil {
				return fmt.Errorf("decode decision input: %w", err)
			}
			pol := policy.DefaultPolicy()
			if policyPath != "" {
				loaded, err := policy.LoadPolicy(policyPath)
				if err != nil {
					return err
				}
				pol = loaded.Policy
			}
			return printJSON(cmd.OutOrStdout(), pipeline.Decide(pol, input))
		},
	}
	cmd.Flags().StringVar(&policyPath, "policy", "", "YAML policy file (defaults to the built-in policy)")
	return cmd
}

func textRequest(stdin io.Reader, args []string) (*http.Request, error) {
	data, err := readInput(stdin, args)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(map[string]string{"text": string(data)})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, endpoint("applications"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func pdfRequest(path string) (*http.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, endpoint("applications", "pdf"), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

// do sends req and pretty-prints the JSON answer. Error statuses still print
// the body, then fail the command.
func do(cmd *cobra.Command, req *http.Request) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", req.URL, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, data, "", "  ") == nil {
		data = pretty.Bytes()
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(data)))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("server answered %s", resp.Status)
	}
	return nil
}

func readInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return data, nil
}

func endpoint(parts ...string) string {
	return strings.TrimRight(serverURL, "/") + "/" + strings.Join(parts, "/")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
