// Package tools provides the MCP tools for ekaya-insight.
package tools

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mark3labs/mcp-go/mcp"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/snowflakedb/gosnowflake"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
)

// ErrorResponse represents a structured error in tool results. It is returned
// as tool content so the calling model can read it and correct its input.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for actionable errors (bad input, unsafe SQL, missing artifacts);
// infrastructure failures should still be returned as Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	jsonBytes, _ := json.Marshal(ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	})
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// NewServiceErrorResult maps errors the model can act on to a tool error
// result. It returns nil for anything else; the caller should then return the
// Go error.
func NewServiceErrorResult(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrUnsafeQuery):
		return NewErrorResult("unsafe_query", err.Error())
	case errors.Is(err, apperrors.ErrGenerationNotConfigured):
		return NewErrorResult("generation_not_configured", "no LLM credential is configured; ask_question is unavailable")
	case errors.Is(err, apperrors.ErrNoWarehouseConnection):
		return NewErrorResult("warehouse_unavailable", logging.SanitizeError(err))
	case errors.Is(err, apperrors.ErrPrimaryMetadataFailed):
		return NewErrorResult("metadata_extraction_failed", logging.SanitizeError(err))
	case errors.Is(err, apperrors.ErrNotFound):
		return NewErrorResult("not_found", err.Error())
	}
	return NewSQLErrorResult(err)
}

// sqlStateRegex matches SQLSTATE codes in wrapped error messages like "(SQLSTATE 42601)".
var sqlStateRegex = regexp.MustCompile(`\(SQLSTATE ([0-9A-Z]{5})\)`)

// SQL Server error numbers caused by the statement itself.
var mssqlUserErrors = map[int32]string{
	102:  "syntax_error",
	156:  "syntax_error",
	207:  "undefined_column",
	208:  "undefined_table",
	245:  "invalid_input",
	8115: "numeric_out_of_range",
	8134: "division_by_zero",
}

// Snowflake error numbers caused by the statement itself.
var snowflakeUserErrors = map[int]string{
	1003:   "syntax_error",
	2003:   "undefined_table",
	904:    "undefined_column",
	100038: "invalid_input",
	100051: "division_by_zero",
}

// SQLUserErrorCode classifies warehouse errors the caller can fix by
// rewriting the query. It returns "" for server-side failures.
func SQLUserErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapSQLStateToCode(pgErr.Code)
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return mssqlUserErrors[msErr.Number]
	}

	var sfErr *gosnowflake.SnowflakeError
	if errors.As(err, &sfErr) {
		if code, ok := snowflakeUserErrors[sfErr.Number]; ok {
			return code
		}
		return mapSQLStateToCode(sfErr.SQLState)
	}

	if matches := sqlStateRegex.FindStringSubmatch(err.Error()); len(matches) >= 2 {
		return mapSQLStateToCode(matches[1])
	}
	return ""
}

// IsSQLUserError reports whether err is a statement error rather than a
// connection or server failure.
func IsSQLUserError(err error) bool {
	return SQLUserErrorCode(err) != ""
}

// mapSQLStateToCode maps a SQLSTATE to an error code. Only classes 22
// (data exception) and 42 (syntax or access rule) count as user errors on a
// read-only path.
func mapSQLStateToCode(sqlState string) string {
	switch sqlState {
	case "42601":
		return "syntax_error"
	case "42703":
		return "undefined_column"
	case "42P01", "42S02":
		return "undefined_table"
	case "22003":
		return "numeric_out_of_range"
	case "22007":
		return "invalid_datetime"
	case "22012":
		return "division_by_zero"
	case "22P02":
		return "invalid_input"
	}
	if len(sqlState) < 2 {
		return ""
	}
	switch sqlState[:2] {
	case "22":
		return "data_exception"
	case "42":
		return "sql_error"
	}
	return ""
}

// ExtractSQLErrorMessage returns the driver's message without SQLSTATE
// suffixes or wrapping prefixes.
func ExtractSQLErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return msErr.Message
	}
	var sfErr *gosnowflake.SnowflakeError
	if errors.As(err, &sfErr) && sfErr.Message != "" {
		return sfErr.Message
	}

	msg := err.Error()
	if idx := strings.Index(msg, " (SQLSTATE"); idx != -1 {
		msg = msg[:idx]
	}
	for _, prefix := range []string{"query failed: ", "failed to execute query: ", "ERROR: "} {
		msg = strings.TrimPrefix(msg, prefix)
	}
	return logging.SanitizeError(errors.New(msg))
}

// NewSQLErrorResult creates an error result from a SQL user error. It returns
// nil when err is not one.
func NewSQLErrorResult(err error) *mcp.CallToolResult {
	code := SQLUserErrorCode(err)
	if code == "" {
		return nil
	}
	return NewErrorResult(code, ExtractSQLErrorMessage(err))
}
