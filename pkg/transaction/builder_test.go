package transaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/logger"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/types"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploadErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNetwork struct {
	price     string
	anchor    string
	priceErr  error
	anchorErr error
	delay     time.Duration
	sizes     chan int64
}

func (f *fakeNetwork) Price(ctx context.Context, dataSize int64) (string, error) {
	if f.sizes != nil {
		f.sizes <- dataSize
	}
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	return f.price, f.priceErr
}

func (f *fakeNetwork) Anchor(ctx context.Context) (string, error) {
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	return f.anchor, f.anchorErr
}

func (f *fakeNetwork) wait(ctx context.Context) error {
	if f.delay == 0 {
		return nil
	}
	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newTestBuilder(t *testing.T, network NetworkInfo, defaults types.Tags) *Builder {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)
	return NewBuilder(network, &BuilderConfig{DefaultTags: defaults}, l)
}

func TestBuilder_Build(t *testing.T) {
	network := &fakeNetwork{price: "123456", anchor: testAnchor, sizes: make(chan int64, 1)}
	b := newTestBuilder(t, network, types.Tags{
		{Name: "App-Name", Value: "permaweb-uploader"},
		{Name: "Content-Type", Value: "should-not-override"},
		{Name: "App-Version", Value: ""},
	})

	tx, err := b.Build(context.Background(), []byte("Hello Arweave!"), types.Tags{{Name: "Content-Type", Value: "text/plain"}})
	require.NoError(t, err)

	assert.Equal(t, int64(14), <-network.sizes)
	assert.Equal(t, "123456", tx.Reward())
	assert.Equal(t, testAnchor, tx.LastTx())
	assert.Equal(t, "", tx.Target())
	assert.Equal(t, "0", tx.Quantity())
	assert.Equal(t, int64(14), tx.DataSize())
	assert.Equal(t, types.Tags{
		{Name: "Content-Type", Value: "text/plain"},
		{Name: "App-Name", Value: "permaweb-uploader"},
	}, tx.Tags())
	assert.False(t, tx.Sealed())
}

func TestBuilder_BuildErrors(t *testing.T) {
	boom := errors.New("connection refused")
	tests := []struct {
		name    string
		network *fakeNetwork
		timeout time.Duration
		kind    uploadErrors.Kind
	}{
		{name: "price transport failure", network: &fakeNetwork{anchor: testAnchor, priceErr: boom}, kind: uploadErrors.KindNetwork},
		{name: "anchor transport failure", network: &fakeNetwork{price: "1", anchorErr: boom}, kind: uploadErrors.KindNetwork},
		{name: "classified error kept", network: &fakeNetwork{price: "1", anchorErr: uploadErrors.Transient(nil, "gateway returned 503")}, kind: uploadErrors.KindTransient},
		{name: "deadline", network: &fakeNetwork{price: "1", anchor: testAnchor, delay: time.Second}, timeout: 10 * time.Millisecond, kind: uploadErrors.KindTransient},
		{name: "bad price", network: &fakeNetwork{price: "free", anchor: testAnchor}, kind: uploadErrors.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.timeout)
				defer cancel()
			}
			_, err := newTestBuilder(t, tt.network, nil).Build(ctx, []byte("x"), nil)
			require.Error(t, err)
			assert.Equal(t, tt.kind, uploadErrors.KindOf(err))
		})
	}
}
