package sinks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gr-butler/airmon/reading"
	logger "github.com/sirupsen/logrus"
)

const mqttPublishTimeout = 5 * time.Second

var ErrPublishTimeout = errors.New("publish timed out")

type mqttMessage struct {
	Time time.Time `json:"time"`
	reading.Set
}

// MQTT publishes each reading set as JSON.
type MQTT struct {
	client mqtt.Client
	topic  string
}

func NewMQTT(broker, clientID, topic string) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Errorf("MQTT connection lost [%v]", err)
		})
	client := mqtt.NewClient(opts)
	if t := client.Connect(); t.Wait() && t.Error() != nil {
		return nil, fmt.Errorf("connecting to %v: %w", broker, t.Error())
	}
	logger.Infof("MQTT mirror connected to %v, topic %v", broker, topic)
	return newMQTT(client, topic), nil
}

func newMQTT(client mqtt.Client, topic string) *MQTT {
	return &MQTT{client: client, topic: topic}
}

func (m *MQTT) Name() string {
	return "mqtt " + m.topic
}

func (m *MQTT) Write(_ context.Context, at time.Time, set reading.Set) error {
	payload, err := json.Marshal(mqttMessage{Time: at.UTC(), Set: set})
	if err != nil {
		return err
	}
	t := m.client.Publish(m.topic, 0, false, payload)
	if !t.WaitTimeout(mqttPublishTimeout) {
		return ErrPublishTimeout
	}
	return t.Error()
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
