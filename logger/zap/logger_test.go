package zap_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/tierforge/tierserve/logger/zap"
	"github.com/tierforge/tierserve/types"
)

var (
	msg10    = "0000000000"
	msg100   = strings.Repeat(msg10, 10)
	msg1000  = strings.Repeat(msg10, 100)
	msg10000 = strings.Repeat(msg10, 1000)

	keyValues10  = []string{}
	keyValues100 = []string{}
)

func init() {
	for i := range 10 {
		keyValues10 = append(keyValues10, "key"+strconv.Itoa(i), "value"+strconv.Itoa(i))
	}
	for i := range 100 {
		keyValues100 = append(keyValues100, "key"+strconv.Itoa(i), "value"+strconv.Itoa(i))
	}
}

func createLogger(_ testing.TB) types.Logger {
	return zap.New("/dev/stdout")
}

func TestLoggerWith(t *testing.T) {
	l := zap.New("/dev/stdout")
	l.With("key1", "value1", "key2", "value2").Info("hello world")
}

func TestLoggerWithOddFields(t *testing.T) {
	l := zap.New("/dev/stdout")
	// an odd number of fields still produces a valid logger, last value empty.
	l.With("key1").Info("odd field count")
}

func TestLoggerEmptyWith(t *testing.T) {
	l := zap.New("/dev/stdout")
	if got := l.With(); got != l {
		t.Fatalf("With() with no fields should return the receiver unchanged")
	}
}

func BenchmarkLogger_Discard10(b *testing.B) {
	l := createLogger(b)
	for b.Loop() {
		l.Infoz(msg10)
	}
}

func BenchmarkLogger_Discard100(b *testing.B) {
	l := createLogger(b)
	for b.Loop() {
		l.Infoz(msg100)
	}
}

func BenchmarkLogger_Discard1000(b *testing.B) {
	l := createLogger(b)
	for b.Loop() {
		l.Infoz(msg1000)
	}
}

func BenchmarkLogger_Discard10000(b *testing.B) {
	l := createLogger(b)
	for b.Loop() {
		l.Infoz(msg10000)
	}
}

func BenchmarkLogger_With10(b *testing.B) {
	l := createLogger(b)
	b.ReportAllocs()
	for b.Loop() {
		l.With(keyValues10...).Info(msg10)
	}
}

func BenchmarkLogger_With100(b *testing.B) {
	l := createLogger(b)
	b.ReportAllocs()
	for b.Loop() {
		l.With(keyValues100...).Info(msg10)
	}
}
