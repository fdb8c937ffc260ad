package holder

import (
	"time"

	"github.com/google/uuid"
)

const defaultVpValidity = 5 * time.Minute

func newUUID() string { return uuid.NewString() }

func clockNow() time.Time { return time.Now() }
