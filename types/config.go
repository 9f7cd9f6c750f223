package types

// Config 求解参数
type Config struct {
	InitFlag          int     `yaml:"init_flag" validate:"oneof=0 1"`
	AbsTol            float64 `yaml:"abs_tol" validate:"gt=0"`
	RelTol            float64 `yaml:"rel_tol" validate:"gt=0"`
	MaxIteration      int     `yaml:"max_iteration" validate:"gte=1"`
	ConvLimit         float64 `yaml:"conv_limit" validate:"lt=1"`
	MaxPressure       float64 `yaml:"max_pressure" validate:"gt=0"`
	Symmetric         bool    `yaml:"symmetric"`
	RemoveZeroColumns bool    `yaml:"remove_zero_columns"`
}

// DefaultConfig 默认求解参数
func DefaultConfig() Config {
	return Config{
		InitFlag:          DefaultInitFlag,
		AbsTol:            DefaultAbsTol,
		RelTol:            DefaultRelTol,
		MaxIteration:      DefaultMaxIteration,
		ConvLimit:         DefaultConvLimit,
		MaxPressure:       DefaultMaxPressure,
		Symmetric:         true,
		RemoveZeroColumns: true,
	}
}

// Environment 室外环境
type Environment struct {
	BaroPress            float64 `yaml:"baro_press" validate:"gt=0"`
	OutdoorTemperature   float64 `yaml:"outdoor_temperature" validate:"gte=-100,lte=100"`
	OutdoorHumidityRatio float64 `yaml:"outdoor_humidity_ratio" validate:"gte=0,lt=1"`
	Latitude             float64 `yaml:"latitude" validate:"gte=-90,lte=90"`
}

// DefaultEnvironment 默认室外环境
func DefaultEnvironment() Environment {
	return Environment{
		BaroPress:            StdBaroPress,
		OutdoorTemperature:   DefaultTemperature,
		OutdoorHumidityRatio: 0.0,
		Latitude:             DefaultLatitude,
	}
}
