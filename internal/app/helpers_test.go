package app

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/config"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploader"
	"github.com/stretchr/testify/require"
)

func gatewayConfigFor(t *testing.T, rawURL string) config.GatewayConfig {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return config.GatewayConfig{
		Host:     u.Hostname(),
		Port:     port,
		Protocol: u.Scheme,
		Timeout:  5 * time.Second,
	}
}

func uploaderRequest(data string) *uploader.Request {
	return &uploader.Request{Data: []byte(data), ContentType: "text/plain"}
}
