package deps

import "strings"

// systemHeaderExact and systemHeaderPrefixes together form the
// allowlist of spec.md §4.2.3: headers that are never resolved
// against the library map because they belong to the toolchain, the
// C/C++ standard library, or a vendor SDK that ships its own include
// path outside the dependency graph.
var systemHeaderExact = map[string]bool{
	"Arduino.h": true, "Print.h": true, "WString.h": true, "Stream.h": true,
	"HardwareSerial.h": true, "Wire.h": true, "SPI.h": true, "avr/pgmspace.h": true,
}

var systemHeaderPrefixes = []string{
	// C standard library
	"std", // stdio.h, stdlib.h, string.h, stdint.h, stddef.h, stdbool.h, ...
	// C++ standard library (no extension, e.g. <vector>, <string>)
	"vector", "string", "map", "set", "algorithm", "functional", "memory",
	"type_traits", "utility", "array", "tuple", "iostream", "sstream",
	// AVR toolchain headers
	"avr/", "util/",
	// ESP-IDF / ESP32 SDK
	"esp_", "driver/", "freertos/", "soc/", "sdkconfig.h", "esp32",
	// CMSIS / ARM core
	"core_cm", "cmsis_", "arm_",
	// STM32 HAL/CMSIS
	"stm32", "Legacy/stm32",
	// nRF52 SDK
	"nrf", "app_",
}

// IsSystemHeader reports whether name should never be resolved
// against the library map.
func IsSystemHeader(name string) bool {
	if systemHeaderExact[name] {
		return true
	}
	lower := strings.ToLower(name)
	for _, p := range systemHeaderPrefixes {
		if strings.HasPrefix(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
