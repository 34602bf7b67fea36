package objectclient

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/botdesk/internal/config"
	"github.com/markdave123-py/botdesk/internal/core"
)

func TestNewObjectClient_MissingCredentialsIsDisabled(t *testing.T) {
	for _, backend := range []string{"s3", "minio"} {
		t.Run(backend, func(t *testing.T) {
			client, err := NewObjectClient(context.Background(), &config.Config{BlobBackend: backend})
			require.NoError(t, err)
			assert.IsType(t, DisabledClient{}, client)
		})
	}
}

func TestDisabledClient(t *testing.T) {
	ctx := context.Background()
	c := DisabledClient{}

	_, err := c.UploadFile(ctx, "documents", "k", strings.NewReader("x"), 1, "text/plain")
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = c.GetFile(ctx, "documents", "k")
	assert.ErrorIs(t, err, core.ErrConfiguration)

	assert.ErrorIs(t, c.DeleteFile(ctx, "documents", "k"), core.ErrConfiguration)
}
