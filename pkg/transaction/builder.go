package transaction

import (
	"context"
	"errors"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/types"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploadErrors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NetworkInfo supplies the externally fetched fields of a transaction
type NetworkInfo interface {
	// Price returns the fee in winston for storing dataSize bytes
	Price(ctx context.Context, dataSize int64) (string, error)

	// Anchor returns a recent base64url anchor to use as last_tx
	Anchor(ctx context.Context) (string, error)
}

type BuilderConfig struct {
	// DefaultTags are appended to every transaction unless the caller already set a tag
	// with the same name.
	DefaultTags types.Tags
}

// Builder assembles unsigned data transactions
type Builder struct {
	network NetworkInfo
	config  *BuilderConfig
	logger  *zap.Logger
}

func NewBuilder(network NetworkInfo, cfg *BuilderConfig, logger *zap.Logger) *Builder {
	if cfg == nil {
		cfg = &BuilderConfig{}
	}
	return &Builder{
		network: network,
		config:  cfg,
		logger:  logger,
	}
}

// Build fetches the reward and anchor concurrently and returns an unsigned transaction
// carrying data and tags followed by the default tags. Nothing is retried.
func (b *Builder) Build(ctx context.Context, data []byte, tags types.Tags) (*UnsignedTransaction, error) {
	var reward, anchor string
	size := int64(len(data))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		price, err := b.network.Price(gctx, size)
		if err != nil {
			return classifyNetworkError(ctx, err, "failed to fetch price")
		}
		reward = price
		return nil
	})
	g.Go(func() error {
		a, err := b.network.Anchor(gctx)
		if err != nil {
			return classifyNetworkError(ctx, err, "failed to fetch anchor")
		}
		anchor = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	allTags := tags.Clone()
	for _, def := range b.config.DefaultTags {
		if def.Name == "" || def.Value == "" {
			continue
		}
		present := lo.ContainsBy(allTags, func(t types.Tag) bool { return t.Name == def.Name })
		if !present {
			allTags = append(allTags, def)
		}
	}

	tx, err := NewUnsignedTransaction(UnsignedTransactionParams{
		Data:   data,
		Tags:   allTags,
		Reward: reward,
		LastTx: anchor,
	})
	if err != nil {
		return nil, err
	}

	b.logger.Sugar().Debugw("Built unsigned transaction", "data_size", size, "tag_count", len(allTags), "reward", reward)
	return tx, nil
}

// classifyNetworkError keeps errors already classified by the gateway client and maps
// everything else to network, or transient once the caller's context has expired.
func classifyNetworkError(ctx context.Context, err error, msg string) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return uploadErrors.Transient(err, "%s: request timed out", msg)
	}
	if uploadErrors.KindOf(err) != uploadErrors.KindUnknown {
		return err
	}
	return uploadErrors.Network(err, "%s", msg)
}
