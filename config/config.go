// Package config 读取 ini 配置文件
package config

import (
	"fmt"

	"airnet/types"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// Log 日志设置
type Log struct {
	Level  string `validate:"oneof=panic fatal error warn warning info debug trace"`
	Format string `validate:"oneof=text json"`
}

// Debug 调试输出设置，路径为空时不输出
type Debug struct {
	Record  string // JSON 迭代记录
	Archive string // snappy 压缩的迭代记录
	Charts  string // HTML 图表
	Plot    string // 收敛曲线图片
	Vectors string // 矩阵与向量文本
	Listen  string `validate:"omitempty,hostname_port"` // 图表、实时推送与指标服务地址
}

// Settings 完整配置
type Settings struct {
	Solver      types.Config
	Environment types.Environment
	Log         Log
	Debug       Debug
}

var validate = validator.New()

// Default 默认配置
func Default() *Settings {
	return &Settings{
		Solver:      types.DefaultConfig(),
		Environment: types.DefaultEnvironment(),
		Log:         Log{Level: "info", Format: "text"},
	}
}

// Load 读取配置，source 为文件路径或 []byte，缺省项取默认值
func Load(source interface{}) (*Settings, error) {
	file, err := ini.Load(source)
	if err != nil {
		return nil, fmt.Errorf("配置文件读取错误: %w", err)
	}
	s := Parse(file)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Parse 从已加载的文件读取配置
func Parse(file *ini.File) *Settings {
	d := Default()
	solver := file.Section("solver")
	env := file.Section("environment")
	logs := file.Section("log")
	debug := file.Section("debug")
	return &Settings{
		Solver: types.Config{
			InitFlag:          solver.Key("InitFlag").MustInt(d.Solver.InitFlag),
			AbsTol:            solver.Key("AbsTol").MustFloat64(d.Solver.AbsTol),
			RelTol:            solver.Key("RelTol").MustFloat64(d.Solver.RelTol),
			MaxIteration:      solver.Key("MaxIteration").MustInt(d.Solver.MaxIteration),
			ConvLimit:         solver.Key("ConvLimit").MustFloat64(d.Solver.ConvLimit),
			MaxPressure:       solver.Key("MaxPressure").MustFloat64(d.Solver.MaxPressure),
			Symmetric:         solver.Key("Symmetric").MustBool(d.Solver.Symmetric),
			RemoveZeroColumns: solver.Key("RemoveZeroColumns").MustBool(d.Solver.RemoveZeroColumns),
		},
		Environment: types.Environment{
			BaroPress:            env.Key("BaroPress").MustFloat64(d.Environment.BaroPress),
			OutdoorTemperature:   env.Key("OutdoorTemperature").MustFloat64(d.Environment.OutdoorTemperature),
			OutdoorHumidityRatio: env.Key("OutdoorHumidityRatio").MustFloat64(d.Environment.OutdoorHumidityRatio),
			Latitude:             env.Key("Latitude").MustFloat64(d.Environment.Latitude),
		},
		Log: Log{
			Level:  logs.Key("Level").MustString(d.Log.Level),
			Format: logs.Key("Format").MustString(d.Log.Format),
		},
		Debug: Debug{
			Record:  debug.Key("Record").String(),
			Archive: debug.Key("Archive").String(),
			Charts:  debug.Key("Charts").String(),
			Plot:    debug.Key("Plot").String(),
			Vectors: debug.Key("Vectors").String(),
			Listen:  debug.Key("Listen").String(),
		},
	}
}

// Validate 校验全部配置
func (s *Settings) Validate() error {
	for name, v := range map[string]interface{}{
		"solver":      &s.Solver,
		"environment": &s.Environment,
		"log":         &s.Log,
		"debug":       &s.Debug,
	} {
		if err := validate.Struct(v); err != nil {
			return fmt.Errorf("配置 [%s] 错误: %w", name, err)
		}
	}
	return nil
}

// ApplyLog 设置全局日志级别与格式
func (s *Settings) ApplyLog() error {
	level, err := log.ParseLevel(s.Log.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	if s.Log.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
