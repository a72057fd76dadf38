package logging

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgMu sync.RWMutex
	cfg   = zap.Config{
		Level:       zap.NewAtomicLevelAt(zap.InfoLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stdout"},
	}
	sink    zapcore.WriteSyncer
	shared  atomic.Pointer[baseCore]
	leveler = &levelSetter{
		levelers:     make(map[string]zap.AtomicLevel),
		defaultLevel: zap.InfoLevel,
	}
)

// Leveler adjusts the level of named loggers at runtime.
type Leveler interface {
	SetLevel(name string, level zapcore.Level)
	GetLevel(name string) zapcore.Level
	SetAll(level zapcore.Level)
}

type levelSetter struct {
	mu           sync.RWMutex
	levelers     map[string]zap.AtomicLevel
	defaultLevel zapcore.Level
}

var _ Leveler = (*levelSetter)(nil)

func GetLeveler() Leveler {
	return leveler
}

func (lw *levelSetter) SetLevel(name string, level zapcore.Level) {
	_ = lw.levelFor(name, level, true)
}

func (lw *levelSetter) GetLevel(name string) zapcore.Level {
	lw.mu.RLock()
	defer lw.mu.RUnlock()

	if l, ok := lw.levelers[name]; ok {
		return l.Level()
	}

	return lw.defaultLevel
}

// SetAll changes every known logger and the level new loggers start at.
func (lw *levelSetter) SetAll(level zapcore.Level) {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	lw.defaultLevel = level
	for _, l := range lw.levelers {
		l.SetLevel(level)
	}
}

// levelFor returns the shared atomic level of a named logger, creating it at the
// default level. With override set the level is forced to the given one.
func (lw *levelSetter) levelFor(name string, level zapcore.Level, override bool) zap.AtomicLevel {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	l, ok := lw.levelers[name]
	if !ok {
		l = zap.NewAtomicLevelAt(lw.defaultLevel)
		lw.levelers[name] = l
	}
	if override {
		l.SetLevel(level)
	}

	return l
}

// ParseLevel converts a textual level, falling back to info.
func ParseLevel(s string) zapcore.Level {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zap.InfoLevel
	}
	return level
}

// Configure switches every logger, including ones created earlier, to encoding
// ("console" or "json") and applies level to all of them.
func Configure(level, encoding string) {
	cfgMu.Lock()
	switch strings.ToLower(encoding) {
	case "json":
		cfg.Encoding = "json"
	default:
		cfg.Encoding = "console"
	}
	rebuildLocked()
	cfgMu.Unlock()

	leveler.SetAll(ParseLevel(level))
}

// output replaces the sink of every logger. Tests point it at a buffer.
func output(ws zapcore.WriteSyncer) {
	cfgMu.Lock()
	defer cfgMu.Unlock()

	sink = ws
	rebuildLocked()
}

func rebuildLocked() {
	if sink == nil {
		ws, _, err := zap.Open(cfg.OutputPaths...)
		if err != nil {
			panic(err)
		}
		sink = ws
	}

	var enc zapcore.Encoder
	if cfg.Encoding == "json" {
		enc = zapcore.NewJSONEncoder(cfg.EncoderConfig)
	} else {
		enc = zapcore.NewConsoleEncoder(cfg.EncoderConfig)
	}
	shared.Store(&baseCore{Core: zapcore.NewCore(enc, sink, zap.DebugLevel)})
}

func currentCore() zapcore.Core {
	if b := shared.Load(); b != nil {
		return b.Core
	}
	cfgMu.Lock()
	defer cfgMu.Unlock()
	if shared.Load() == nil {
		rebuildLocked()
	}
	return shared.Load().Core
}

type baseCore struct {
	zapcore.Core
}

// namedCore filters on its logger's level and writes through whatever encoder and
// sink are current at write time.
type namedCore struct {
	level  zap.AtomicLevel
	fields []zapcore.Field
}

func (c *namedCore) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l)
}

func (c *namedCore) With(fields []zapcore.Field) zapcore.Core {
	return &namedCore{
		level:  c.level,
		fields: append(slices.Clone(c.fields), fields...),
	}
}

func (c *namedCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *namedCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	all := fields
	if len(c.fields) > 0 {
		all = append(slices.Clone(c.fields), fields...)
	}
	return currentCore().Write(ent, all)
}

func (c *namedCore) Sync() error {
	return currentCore().Sync()
}

func New(name string) *zap.SugaredLogger {
	core := &namedCore{level: leveler.levelFor(name, zap.InfoLevel, false)}
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.PanicLevel)).Named(name).Sugar()
}
