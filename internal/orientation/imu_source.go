package orientation

import (
	"fmt"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

type imuSource struct {
	name string
	imu  *mpu9250.MPU9250
}

// NewIMUSource initializes an MPU9250 over SPI (e.g. /dev/spidev6.0 with
// CS on GPIO18) and returns a Source that reads roll/pitch from the
// accelerometer. Yaw stays 0 since the magnetometer is not fused.
func NewIMUSource(spiDevice, csPin string) (Source, error) {
	name := spiDevice

	// Initialize periph host once.
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%s IMU: periph host init: %w", name, err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("%s IMU: CS pin %q not found", name, csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("%s IMU: SPI transport: %w", name, err)
	}

	imu, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("%s IMU: device creation: %w", name, err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("%s IMU: initialization: %w", name, err)
	}

	if err := imu.Calibrate(); err != nil {
		return nil, fmt.Errorf("%s IMU: calibrate: %w", name, err)
	}

	return &imuSource{name: name, imu: imu}, nil
}

// Next reads the accelerometer and converts it to an attitude.
// Physical units are not needed, only the axis ratios.
func (s *imuSource) Next() (Attitude, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return Attitude{}, fmt.Errorf("%s IMU: acc X: %w", s.name, err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return Attitude{}, fmt.Errorf("%s IMU: acc Y: %w", s.name, err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return Attitude{}, fmt.Errorf("%s IMU: acc Z: %w", s.name, err)
	}

	return ComputeAttitudeFromAccel(float64(ax), float64(ay), float64(az)), nil
}
