package stix_test

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	stix "github.com/reoring/stix"
)

const (
	indicatorID  = "indicator--a740531e-63ff-4e49-a9e1-a0a3eed0e3e7"
	malwareID    = "malware--9c4638ec-f1de-4ddb-abf4-1b760417654e"
	identityID   = "identity--311b2d2d-f010-4473-83ec-1edf84858f4c"
	tlpAmberID   = "marking-definition--f88d31f6-486f-44da-b317-01333bde0b82"
	md5Pattern   = "[file:hashes.MD5 = 'd41d8cd98f00b204e9800998ecf8427e']"
	fixedNowText = "2017-01-01T12:34:56Z"
)

var fixedNow = time.Date(2017, 1, 1, 12, 34, 56, 0, time.UTC)

// testCtx returns a context with a frozen clock and sequential identifiers
// 00000000-0000-4000-8000-000000000001, ...02, and so on.
func testCtx() context.Context {
	n := 0
	ctx := stix.WithClock(context.Background(), func() time.Time { return fixedNow })
	return stix.WithIDGenerator(ctx, func() uuid.UUID {
		n++
		return uuid.MustParse(fmt.Sprintf("00000000-0000-4000-8000-%012d", n))
	})
}

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		panic(err)
	}
	return t
}

func indicatorFields() stix.Fields {
	return stix.Fields{
		"id":         indicatorID,
		"created":    "2017-01-01T00:00:01Z",
		"modified":   "2017-01-01T00:00:01Z",
		"labels":     []string{"malicious-activity"},
		"pattern":    md5Pattern,
		"valid_from": "1970-01-01T00:00:01Z",
	}
}
