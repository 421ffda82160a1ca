package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Layr-Labs/permaweb-uploader-go/internal/app"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/logger"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/payload"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/transaction"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/transactionSigner"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/transport"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/types"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploader"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	payloadFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "file",
			Usage: "Path of the file to upload",
		},
		&cli.StringFlag{
			Name:  "data",
			Usage: "Text to upload (ignored when --file is set)",
		},
		&cli.StringFlag{
			Name:  "content-type",
			Usage: "Content type (default: guessed from the file extension, text/plain for --data)",
		},
		&cli.StringSliceFlag{
			Name:  "tag",
			Usage: "Extra tag as name=value; repeatable, order is kept",
		},
	}

	cliApp := &cli.App{
		Name:  "uploader-client",
		Usage: "Sign and submit permaweb transactions from the command line",
		Description: `A one-shot client for an Arweave-style gateway.

This client can:
- Upload a file or text, retrying transient gateway failures with backoff
- Sign a transaction without submitting it and write its JSON to a file
- Verify the signature and id of a transaction JSON file
- Show the confirmation status of a transaction
- Show the wallet address and balance`,
		Version: "1.0.0",
		Flags:   app.CommonFlags(),
		Commands: []*cli.Command{
			{
				Name:  "upload",
				Usage: "Upload a file or text",
				Flags: append(payloadFlags,
					&cli.IntFlag{
						Name:  "retries",
						Usage: "Attempts for transient failures; each attempt is rebuilt and re-signed",
						Value: transport.DefaultRetryConfig.MaxAttempts,
					},
				),
				Action: uploadCommand,
			},
			{
				Name:  "sign",
				Usage: "Build and sign a transaction without submitting it",
				Flags: append(payloadFlags,
					&cli.StringFlag{
						Name:  "output",
						Usage: "Output file for the signed transaction JSON (default: stdout)",
					},
				),
				Action: signCommand,
			},
			{
				Name:  "verify",
				Usage: "Verify a signed transaction JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "tx",
						Usage:    "Path of the transaction JSON",
						Required: true,
					},
				},
				Action: verifyCommand,
			},
			{
				Name:  "status",
				Usage: "Show the confirmation status of a transaction",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Transaction id",
						Required: true,
					},
				},
				Action: statusCommand,
			},
			{
				Name:   "address",
				Usage:  "Show the wallet address and balance",
				Action: addressCommand,
			},
			{
				Name:  "receipts",
				Usage: "List uploads recorded in the receipt store",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum receipts to list (0 for all)",
						Value: 20,
					},
				},
				Action: receiptsCommand,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// setup builds the shared components from the global flags
func setup(c *cli.Context) (*app.Components, *zap.Logger, error) {
	cfg, err := app.ConfigFromCLI(c)
	if err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	components, err := app.NewComponents(c.Context, cfg, l)
	if err != nil {
		return nil, nil, err
	}
	return components, l, nil
}

// readPayload returns the request described by --file/--data/--content-type/--tag
func readPayload(c *cli.Context, maxBytes int64) (*uploader.Request, error) {
	tags, err := parseTags(c.StringSlice("tag"))
	if err != nil {
		return nil, err
	}

	req := &uploader.Request{Tags: tags, ContentType: c.String("content-type")}
	switch {
	case c.String("file") != "":
		path := c.String("file")
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if info.Size() > maxBytes {
			return nil, fmt.Errorf("%s is %d bytes, over the %d byte limit", path, info.Size(), maxBytes)
		}
		if req.Data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if req.ContentType == "" {
			req.ContentType = mime.TypeByExtension(filepath.Ext(path))
		}
		if req.ContentType == "" {
			req.ContentType = payload.DefaultFileContentType
		}
	case c.IsSet("data"):
		req.Data = []byte(c.String("data"))
		if int64(len(req.Data)) > maxBytes {
			return nil, fmt.Errorf("data is %d bytes, over the %d byte limit", len(req.Data), maxBytes)
		}
		if req.ContentType == "" {
			req.ContentType = payload.DefaultTextContentType
		}
	default:
		return nil, fmt.Errorf("either --file or --data is required")
	}
	return req, nil
}

func parseTags(raw []string) (types.Tags, error) {
	tags := make(types.Tags, 0, len(raw))
	for _, t := range raw {
		name, value, ok := strings.Cut(t, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid tag %q, expected name=value", t)
		}
		tags = append(tags, types.Tag{Name: name, Value: value})
	}
	return tags, nil
}

func uploadCommand(c *cli.Context) error {
	components, l, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = components.Close() }()

	req, err := readPayload(c, components.Config.MaxUploadBytes)
	if err != nil {
		return err
	}

	retryCfg := transport.DefaultRetryConfig
	retryCfg.MaxAttempts = c.Int("retries")
	if retryCfg.MaxAttempts < 1 {
		retryCfg.MaxAttempts = 1
	}

	var result *uploader.Result
	err = transport.Retry(c.Context, retryCfg, l, func(ctx context.Context, attempt int) error {
		var uploadErr error
		result, uploadErr = components.Uploader.Upload(ctx, req)
		return uploadErr
	})
	if err != nil {
		if result != nil && result.Receipt != nil {
			_ = printJSON(result.Receipt)
		}
		return fmt.Errorf("upload failed: %w", err)
	}

	return printJSON(types.UploadResponse{
		Success:       true,
		TransactionID: result.Transaction.ID(),
		URL:           result.Submission.URL,
	})
}

func signCommand(c *cli.Context) error {
	components, l, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = components.Close() }()

	req, err := readPayload(c, components.Config.MaxUploadBytes)
	if err != nil {
		return err
	}

	builder := transaction.NewBuilder(components.Gateway, &transaction.BuilderConfig{DefaultTags: app.DefaultTags(components.Config)}, l)
	unsigned, err := builder.Build(c.Context, req.Data, payload.TagsWithContentType(req.ContentType, req.Tags))
	if err != nil {
		return fmt.Errorf("failed to build transaction: %w", err)
	}

	signed, err := transactionSigner.NewKeyStoreSigner(components.Keys, l).SignTransaction(c.Context, unsigned)
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}

	out, err := json.MarshalIndent(signed.ToWire(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode transaction: %w", err)
	}
	if path := c.String("output"); path != "" {
		if err := os.WriteFile(path, out, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		l.Sugar().Infow("Wrote signed transaction", "id", signed.ID(), "path", path)
		return nil
	}
	fmt.Println(string(out))
	return nil
}

func verifyCommand(c *cli.Context) error {
	path := c.String("tx")
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var wire transaction.Wire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	tx, err := transaction.FromWire(&wire)
	if err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}
	if err := transactionSigner.Verify(tx); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	return printJSON(map[string]interface{}{
		"valid":     true,
		"id":        tx.ID(),
		"owner":     tx.OwnerAddress(),
		"data_size": tx.DataSize(),
		"tags":      tx.Tags(),
	})
}

func statusCommand(c *cli.Context) error {
	components, _, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = components.Close() }()

	status, err := components.Gateway.Status(c.Context, c.String("id"))
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	return printJSON(status)
}

func addressCommand(c *cli.Context) error {
	components, _, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = components.Close() }()

	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()

	address, err := components.Uploader.Address(ctx)
	if err != nil {
		return fmt.Errorf("failed to load wallet: %w", err)
	}
	balance, err := components.Gateway.Balance(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}
	return printJSON(map[string]string{
		"address": address,
		"balance": balance,
	})
}

func receiptsCommand(c *cli.Context) error {
	components, _, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = components.Close() }()

	receipts, err := components.Uploader.Receipts(c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list receipts: %w", err)
	}
	return printJSON(receipts)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
