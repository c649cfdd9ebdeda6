package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/relaydeck/convod/core/protocol"
	"github.com/relaydeck/convod/tools"
)

func registerBuiltinTools(reg *tools.Registry) {
	must(reg.Register(protocol.Tool{
		Name:        "datetime",
		Description: "Returns the current date and time in RFC3339 format.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}, handleDatetime))

	must(reg.Register(protocol.Tool{
		Name:        "read_uploaded_file",
		Description: "Decodes a base64-encoded file payload from the conversation and returns its text content.",
		Parameters:  tools.SchemaFor(readUploadedFileArgs{}),
	}, handleReadUploadedFile))
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("failed to register tool: %v", err))
	}
}

func handleDatetime(_ context.Context, _ json.RawMessage) (tools.Result, error) {
	return tools.Result{Content: time.Now().Format(time.RFC3339)}, nil
}

type readUploadedFileArgs struct {
	Content string `json:"content" jsonschema:"description=The base64-encoded file content to decode."`
}

func handleReadUploadedFile(_ context.Context, raw json.RawMessage) (tools.Result, error) {
	var args readUploadedFileArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return tools.Result{Content: "invalid arguments: " + err.Error(), IsError: true}, nil
	}
	if args.Content == "" {
		return tools.Result{Content: "content is required", IsError: true}, nil
	}

	data, err := base64.StdEncoding.DecodeString(args.Content)
	if err != nil {
		return tools.Result{Content: "content is not valid base64: " + err.Error(), IsError: true}, nil
	}
	return tools.Result{Content: string(data)}, nil
}
