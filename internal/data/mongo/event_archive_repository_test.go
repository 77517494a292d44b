package mongo

import (
	"testing"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestNewEventArchiveRepository(t *testing.T) {
	db := &mongo.Database{}
	logger := slog.Default()

	repo := NewEventArchiveRepository(logger, db)

	assert.NotNil(t, repo)
	assert.IsType(t, &EventArchiveRepository{}, repo)
}

// Query behavior is exercised against a live MongoDB in integration
// environments; unit coverage for the archive lives with its consumers.
