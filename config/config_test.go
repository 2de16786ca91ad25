package config

import (
	"testing"

	"github.com/ceyewan/snowgen/clog"
	"github.com/ceyewan/snowgen/xerrors"
)

// TestNew 测试创建配置加载器
func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{name: "nil config", cfg: nil},
		{name: "custom config", cfg: &Config{Name: "snowgen", Paths: []string{"./testdata"}, FileType: "json", EnvPrefix: "app"}},
		{name: "name with separator", cfg: &Config{Name: "conf/app"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader, err := New(tt.cfg, WithLogger(clog.Discard()))
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !IsInvalidInput(err) {
					t.Errorf("IsInvalidInput(%v) = false，期望 true", err)
				}
				return
			}
			if loader == nil {
				t.Fatal("New() 返回 nil loader")
			}
		})
	}
}

// TestConfigDefaults 测试默认值填充
func TestConfigDefaults(t *testing.T) {
	cfg := &Config{EnvPrefix: "snowgen_dev"}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate() = %v", err)
	}

	if cfg.Name != "config" {
		t.Errorf("Name = %q，期望 config", cfg.Name)
	}
	if len(cfg.Paths) != 2 || cfg.Paths[0] != "." || cfg.Paths[1] != "./config" {
		t.Errorf("Paths = %v", cfg.Paths)
	}
	if cfg.FileType != "yaml" {
		t.Errorf("FileType = %q，期望 yaml", cfg.FileType)
	}
	if cfg.EnvPrefix != "SNOWGEN_DEV" {
		t.Errorf("EnvPrefix = %q，期望大写", cfg.EnvPrefix)
	}

	empty := &Config{}
	_ = empty.validate()
	if empty.EnvPrefix != DefaultEnvPrefix {
		t.Errorf("EnvPrefix = %q，期望 %q", empty.EnvPrefix, DefaultEnvPrefix)
	}
}

// TestErrorHelpers 测试错误判断函数
func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantNotFound bool
		wantInvalid  bool
	}{
		{"not found", xerrors.Wrap(xerrors.ErrNotFound, "lookup"), true, false},
		{"invalid input", xerrors.ErrInvalidInput, false, true},
		{"validation failed", xerrors.Wrap(ErrValidationFailed, "empty"), false, true},
		{"nil", nil, false, false},
		{"other", xerrors.New("boom"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.wantNotFound {
				t.Errorf("IsNotFound() = %v，期望 %v", got, tt.wantNotFound)
			}
			if got := IsInvalidInput(tt.err); got != tt.wantInvalid {
				t.Errorf("IsInvalidInput() = %v，期望 %v", got, tt.wantInvalid)
			}
		})
	}
}
