package gcs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/repairdesk-backend/pkg/config"
)

func TestNewClientRequiresBucket(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCSConfig{}, config.GCPConfig{}, nil)
	require.Error(t, err)
}

func TestObjectURLEscapesSegments(t *testing.T) {
	client := &Client{bucket: "repairdesk-media", publicBaseURL: "https://storage.googleapis.com"}
	got := client.ObjectURL("branches/b1/orders/o1/photos/front view.png")
	require.Equal(t, "https://storage.googleapis.com/repairdesk-media/branches/b1/orders/o1/photos/front%20view.png", got)
}

func TestUninitializedClient(t *testing.T) {
	var client *Client
	require.Error(t, client.Ping(context.Background()))
	require.Error(t, client.Delete(context.Background(), "k"))
	require.NoError(t, client.Close())
}
