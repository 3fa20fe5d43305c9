package log

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

// Покрытие:
//   - From без логгера в контексте -> глобальный zerolog-логгер;
//   - Into/From round-trip;
//   - устойчивость к «мусорным» значениям и nil-логгеру;
//   - перекрытие логгера дочерним контекстом;
//   - сохранность отмены/дедлайна;
//   - New: формат и уровень по окружению.

func newSilent() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func TestFrom_ReturnsGlobal_WhenNoLoggerInContext(t *testing.T) {
	t.Parallel()

	require.Same(t, &zlog.Logger, From(context.Background()))
}

func TestIntoAndFrom_RoundTrip(t *testing.T) {
	t.Parallel()

	l := newSilent()
	ctx := Into(context.Background(), l)

	require.Same(t, l, From(ctx))
}

func TestFrom_ReturnsGlobal_WhenStoredValueIsWrongTypeOrNil(t *testing.T) {
	t.Parallel()

	ctxWrong := context.WithValue(context.Background(), ctxKey{}, "not-a-logger")
	require.Same(t, &zlog.Logger, From(ctxWrong))

	var nilLogger *zerolog.Logger
	ctxNil := context.WithValue(context.Background(), ctxKey{}, nilLogger)
	require.Same(t, &zlog.Logger, From(ctxNil))
}

func TestInto_ShadowParentLogger(t *testing.T) {
	t.Parallel()

	parentL := newSilent()
	childL := newSilent()

	parent := Into(context.Background(), parentL)
	child := Into(parent, childL)

	require.Same(t, childL, From(child))
	require.Same(t, parentL, From(parent))
}

func TestInto_PreservesCancellationAndDeadline(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	child := Into(parent, newSilent())

	cdl, ok := child.Deadline()
	require.True(t, ok)
	pdl, _ := parent.Deadline()
	require.Equal(t, pdl, cdl)

	cancel()
	<-child.Done()
	require.ErrorIs(t, child.Err(), context.Canceled)
}

func TestNew_ProdWritesJSONAtInfo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New("prod", &buf)

	l.Debug().Msg("hidden")
	require.Zero(t, buf.Len())

	l.Info().Str("op", "test").Msg("visible")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "visible", rec["message"])
	require.Equal(t, "test", rec["op"])
	require.Contains(t, rec, "time")
}

func TestNew_DevLogsDebug(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New("dev", &buf)

	l.Debug().Msg("debug_event")
	require.Contains(t, buf.String(), "debug_event")
}

func TestNew_LocalUsesConsoleWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New("local", &buf)

	l.Info().Msg("console_event")
	require.Contains(t, buf.String(), "console_event")
	require.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
