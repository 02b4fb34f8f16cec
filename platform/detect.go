package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/carlosrabelo/miko/domain/entities"
)

const (
	sysDescrOID        = ".1.3.6.1.2.1.1.1.0"
	defaultCommunity   = "public"
	defaultSNMPTimeout = 5 * time.Second
	defaultSNMPPort    = 161
)

var errNoSysDescr = errors.New("no sysDescr in SNMP response")

// querySysDescr is replaced in tests
var querySysDescr = snmpSysDescr

// Detect reads sysDescr.0 from the device and returns the first driver
// that recognises it.
func Detect(ctx context.Context, cfg entities.DeviceConfig) (Driver, error) {
	descr, err := querySysDescr(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to detect platform of %s: %w", cfg.Host(), err)
	}
	return Match(descr)
}

// Match returns the first registered driver accepting sysDescr
func Match(sysDescr string) (Driver, error) {
	for _, driver := range registry {
		if driver.Matches(sysDescr) {
			return driver, nil
		}
	}
	return nil, fmt.Errorf("unable to detect device platform from %q", sysDescr)
}

func snmpSysDescr(ctx context.Context, cfg entities.DeviceConfig) (string, error) {
	community := cfg.SNMPCommunity
	if community == "" {
		community = defaultCommunity
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultSNMPTimeout
	}

	client := &gosnmp.GoSNMP{
		Target:    cfg.Host(),
		Port:      defaultSNMPPort,
		Transport: "udp",
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   timeout,
		Retries:   0,
		Context:   ctx,
	}
	if err := client.Connect(); err != nil {
		return "", err
	}
	defer client.Conn.Close()

	result, err := client.Get([]string{sysDescrOID})
	if err != nil {
		return "", err
	}
	return sysDescrFromPDUs(result.Variables)
}

func sysDescrFromPDUs(pdus []gosnmp.SnmpPDU) (string, error) {
	for _, pdu := range pdus {
		if pdu.Type != gosnmp.OctetString {
			continue
		}
		if raw, ok := pdu.Value.([]byte); ok {
			return string(raw), nil
		}
	}
	return "", errNoSysDescr
}
