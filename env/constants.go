package env

import "time"

const (
	GPIO05 = "GPIO05" // mux channel select
	GPIO06 = "GPIO06" // mux reset
	GPIO20 = "GPIO20" // status LED

	MuxResetPin  = GPIO06
	MuxSelectPin = GPIO05
	StatusLed    = GPIO20

	// Mux channels. The microphone sits on A, the light sensor on B.
	MicChannel   = true
	LightChannel = false

	MuxSettle = time.Millisecond
	// ADS1115 single ended readings are 15 bit, the DC offset below is for a 10 bit converter
	ADCShift = 5

	AM2320Address = 0x5C

	CO2Port        = "/dev/serial0"
	CO2BaudRate    = 9600
	CO2ReadTimeout = time.Second
	CO2PreHeat     = 3 * time.Minute
	PreHeatPoll    = time.Second

	NetworkPoll = 500 * time.Millisecond

	MicBufferSize = 1024
	MicDCOffset   = 780

	ClimateInterval = 500 * time.Millisecond
	MicInterval     = 20 * time.Millisecond
	PostInterval    = 1000 * time.Millisecond
	LoopIdle        = time.Millisecond

	LEDFlashDuration = time.Millisecond * 50

	Host        = "simsva.se"
	Path        = "/api/aidb/add_data"
	Port        = 443
	Fingerprint = "CE 11 C9 02 AF 21 4F 7E DA 4E A4 94 42 17 7A B5 82 65 B3 DA"

	ConnectRetries    = 30
	ConnectRetryPause = 100 * time.Millisecond
	ReadTimeout       = 15 * time.Second

	MQTTTopicPrefix = "airmon"
	StatusAddr      = ":80"
)
