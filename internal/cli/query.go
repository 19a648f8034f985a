package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rpattn/dataql/internal/api"
	"github.com/rpattn/dataql/internal/domain"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [request.json]",
		Short: "Run one query request",
		Long: `Run a query request read from a file, or from stdin when the file is
omitted or "-", and print the response envelope.

Example:
  dataql query request.json
  echo '{"namespace":"main","object":"user","rule":{"role__role_name":"admin"}}' | dataql query`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readRequest(cmd, args)
			if err != nil {
				return err
			}
			var req domain.QueryRequest
			if err := decodeRequest(body, &req); err != nil {
				return respond(cmd, nil, err)
			}

			a, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.service.Query(cmd.Context(), req)
			if err != nil {
				return respond(cmd, nil, err)
			}
			return respond(cmd, result.Data(a.service.PageNames()), nil)
		},
	}
	return cmd
}

func readRequest(cmd *cobra.Command, args []string) ([]byte, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open request", err)
		}
		defer f.Close()
		r = f
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read request", err)
	}
	return body, nil
}

func decodeRequest(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if de, ok := domain.AsError(err); ok {
			return de
		}
		return domain.ParamErrorf("invalid request: %v", err)
	}
	return nil
}

// respond prints the response envelope. A failed request still prints its
// envelope and then exits with ExitFailure.
func respond(cmd *cobra.Command, data any, err error) error {
	resp := api.Response{Code: domain.CodeOK, Data: data}
	if err != nil {
		resp = api.Response{Code: domain.CodeUnknown, Message: err.Error(), Data: map[string]any{}}
		if de, ok := domain.AsError(err); ok {
			resp.Code = de.Code
			resp.Message = de.Message
		}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(resp); encErr != nil {
		return WrapExitError(ExitCommandError, "failed to write response", encErr)
	}
	if err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("request failed [%s]", resp.Code), err)
	}
	return nil
}
