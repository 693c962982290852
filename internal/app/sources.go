package app

import (
	"fmt"
	"log/slog"

	"github.com/jacksonchui/Social-Media-Intervention/internal/config"
	"github.com/jacksonchui/Social-Media-Intervention/internal/motion"
	"github.com/jacksonchui/Social-Media-Intervention/internal/orientation"
)

// OpenAttitudeSource builds the sampling source selected by
// ATTITUDE_SOURCE. The returned close func releases the underlying device
// or connection and must be called after updates have stopped. A nil
// logger discards output.
func OpenAttitudeSource(cfg *config.Config, logger *slog.Logger) (*motion.PollingSource, func() error, error) {
	logger = orDiscard(logger)
	noop := func() error { return nil }

	switch cfg.AttitudeSource {
	case "mock":
		logger.Info("using mock attitude source")
		return motion.NewPollingSource(orientation.NewMockSource(), logger), noop, nil

	case "mqtt":
		src, err := motion.NewMQTTSource(cfg.MQTTBroker, cfg.MQTTClientID+"-attitude", cfg.TopicAttitude, logger)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() error {
			src.Close()
			return nil
		}
		return motion.NewPollingSource(src, logger), closeFn, nil

	case "serial":
		src, err := motion.NewSerialSource(cfg.SerialPort, cfg.SerialBaudRate, logger)
		if err != nil {
			return nil, nil, err
		}
		return motion.NewPollingSource(src, logger), src.Close, nil

	case "imu":
		src, err := orientation.NewIMUSource(cfg.IMUSPIDevice, cfg.IMUCSPin)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using IMU attitude source", "device", cfg.IMUSPIDevice)
		return motion.NewPollingSource(src, logger), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown attitude source %q", cfg.AttitudeSource)
	}
}
