package builder

import "errors"

var (
	ErrParserError          = errors.New("parser error occurred")
	ErrAnalysis             = errors.New("analysis failed")
	ErrUnexpectedOutputPath = errors.New("unexpected output path provided")
	ErrUnknownTarget        = errors.New("unknown target")
	ErrNoInput              = errors.New("no declaration file provided")
)
