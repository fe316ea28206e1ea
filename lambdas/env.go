package lambdas

import (
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"stepfunction-cloner/cloneerr"
)

// EnvSource selects where imported functions get their environment from.
type EnvSource struct {
	// FilePath is an explicit environment file. It takes precedence.
	FilePath string
	// Included uses the lambda-envs.json snapshot found in PackageDir.
	Included   bool
	PackageDir string
}

// EnvironmentResolver resolves the environment variables of each package:
// explicit file first, then the co-located snapshot, then nothing.
type EnvironmentResolver struct {
	explicit Snapshot
	included Snapshot
	logger   *zap.Logger
}

func NewEnvironmentResolver(src EnvSource, logger *zap.Logger) (*EnvironmentResolver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &EnvironmentResolver{logger: logger}

	switch {
	case src.FilePath != "":
		snap, err := ReadSnapshot(src.FilePath)
		if err != nil {
			return nil, err
		}
		r.explicit = snap
	case src.Included:
		path := filepath.Join(src.PackageDir, SnapshotFileName)
		snap, err := ReadSnapshot(path)
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("environment snapshot not found, functions get no variables", zap.String("path", path))
			break
		}
		if err != nil {
			return nil, err
		}
		r.included = snap
	}
	return r, nil
}

// Resolve returns the variables for baseName. It never returns nil.
func (r *EnvironmentResolver) Resolve(baseName string) map[string]string {
	if r.explicit != nil {
		env, ok := r.explicit[baseName]
		if !ok {
			r.logger.Warn("no entry in environment file, using empty environment",
				zap.String("function", baseName),
				zap.Error(cloneerr.New(cloneerr.MissingEnvEntry, "%s", baseName)))
			return map[string]string{}
		}
		return copyEnv(env)
	}
	if r.included != nil {
		return copyEnv(r.included[baseName])
	}
	return map[string]string{}
}

func copyEnv(env map[string]string) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}
