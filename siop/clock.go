package siop

import (
	"time"

	"github.com/google/uuid"
)

func newUUID() string { return uuid.NewString() }

func clockNow() time.Time { return time.Now() }
