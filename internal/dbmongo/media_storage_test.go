package dbmongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"coursechat/internal/media"
)

func TestOpenRejectsMalformedID(t *testing.T) {
	storage := &MediaStorage{}

	// A malformed ObjectID fails before any bucket access.
	_, _, err := storage.Open(context.Background(), "not-a-hex-id")
	assert.ErrorIs(t, err, media.ErrNotFound)
}

func TestDeleteRejectsMalformedID(t *testing.T) {
	storage := &MediaStorage{}
	err := storage.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, media.ErrNotFound)
}

func TestGetStringFromMap(t *testing.T) {
	m := bson.M{"mime_type": "image/png", "size": 42}

	assert.Equal(t, "image/png", getStringFromMap(m, "mime_type"))
	assert.Equal(t, "", getStringFromMap(m, "missing"))
	assert.Equal(t, "", getStringFromMap(m, "size"), "non-string values are ignored")
	assert.Equal(t, "", getStringFromMap(nil, "mime_type"))
}
