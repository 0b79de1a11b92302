package validation

import (
	"fmt"
	"regexp"
)

// DeviceIDPattern определяет допустимый формат device_id
// Только латинские буквы (a-z, A-Z), цифры (0-9), дефис (-), нижнее подчеркивание (_)
// Длина: 1-128 символов
var DeviceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

// MaxDeviceIDLen максимальная длина device_id
const MaxDeviceIDLen = 128

// ValidateDeviceID проверяет, что device_id соответствует требованиям.
// device_id — ключ checkpoint устройства: пустое или произвольное
// значение сделало бы checkpoint бессмысленным.
func ValidateDeviceID(deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("device_id cannot be empty")
	}

	if len(deviceID) > MaxDeviceIDLen {
		return fmt.Errorf("device_id must not exceed %d characters", MaxDeviceIDLen)
	}

	if !DeviceIDPattern.MatchString(deviceID) {
		return fmt.Errorf("device_id can only contain letters (a-z, A-Z), numbers (0-9), hyphens (-), and underscores (_)")
	}

	return nil
}
