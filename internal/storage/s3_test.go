package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/adviserops/chaser/internal/domain"
)

func TestArchiveKey(t *testing.T) {
	comm := &domain.Communication{
		ID:     "comm-1",
		FirmID: "firm-123",
		SentAt: time.Date(2026, 3, 10, 23, 30, 0, 0, time.FixedZone("BST", 3600)),
	}

	// Keys bucket by the UTC day the communication went out.
	assert.Equal(t, "communications/firm-123/2026-03-10/comm-1.json", ArchiveKey(comm))
}
