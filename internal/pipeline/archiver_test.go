package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeArchiver struct {
	cutoff   time.Time
	archived int64
	err      error
}

func (f *fakeArchiver) ArchiveRounds(ctx context.Context, before time.Time) (int64, error) {
	f.cutoff = before
	return f.archived, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunUsesRetentionCutoff(t *testing.T) {
	fake := &fakeArchiver{archived: 3}
	a := NewArchiver(fake, 7, discardLogger())

	require.NoError(t, a.Run(context.Background()))

	want := time.Now().UTC().Add(-7 * 24 * time.Hour)
	require.WithinDuration(t, want, fake.cutoff, time.Minute)
}

func TestRunPropagatesError(t *testing.T) {
	fake := &fakeArchiver{err: errors.New("s3 down")}
	a := NewArchiver(fake, 7, discardLogger())

	err := a.Run(context.Background())
	require.ErrorContains(t, err, "s3 down")
}

func TestParseCronField(t *testing.T) {
	f, err := parseCronField("*")
	require.NoError(t, err)
	require.True(t, f.wildcard)
	require.True(t, f.matches(59))

	f, err = parseCronField("1,15")
	require.NoError(t, err)
	require.True(t, f.matches(1))
	require.True(t, f.matches(15))
	require.False(t, f.matches(2))

	_, err = parseCronField("bogus")
	require.Error(t, err)
}

func TestParseCronRejectsWrongFieldCount(t *testing.T) {
	_, err := parseCron("0 3 * *")
	require.Error(t, err)
}

func TestNextCronTimeDaily(t *testing.T) {
	// 3:00 AM every day, starting just after midnight.
	after := time.Date(2026, 8, 30, 0, 30, 0, 0, time.UTC)
	next, err := nextCronTime("0 3 * * *", after)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 8, 30, 3, 0, 0, 0, time.UTC), next)

	// Starting after 3 AM rolls to the next day.
	after = time.Date(2026, 8, 30, 4, 0, 0, 0, time.UTC)
	next, err = nextCronTime("0 3 * * *", after)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 8, 31, 3, 0, 0, 0, time.UTC), next)
}

func TestNextCronTimeMonthly(t *testing.T) {
	after := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	next, err := nextCronTime("0 3 1 * *", after)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 9, 1, 3, 0, 0, 0, time.UTC), next)
}

func TestRunIntervalStopsOnCancel(t *testing.T) {
	fake := &fakeArchiver{}
	a := NewArchiver(fake, 7, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.RunInterval(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}
