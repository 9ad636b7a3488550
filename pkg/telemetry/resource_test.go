package telemetry

import (
	"context"
	"net"
	"runtime"
	"strings"
	"testing"
)

func TestGetHostIP(t *testing.T) {
	ip := getHostIP()

	if ip == "" {
		t.Skip("Could not get host IP, skipping test")
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		t.Errorf("Expected valid IP address, got '%s'", ip)
	}

	if parsedIP.IsLoopback() {
		t.Errorf("Expected non-loopback IP, got '%s'", ip)
	}

	t.Logf("Host IP: %s", ip)
}

func TestGetFirstNonLoopbackIP(t *testing.T) {
	ip := getFirstNonLoopbackIP()

	if ip == "" {
		t.Skip("No non-loopback IP found, skipping test")
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		t.Errorf("Expected valid IP address, got '%s'", ip)
	}

	if parsedIP.IsLoopback() {
		t.Errorf("Expected non-loopback IP, got '%s'", ip)
	}

	t.Logf("First non-loopback IP: %s", ip)
}

func TestBuildResourceRuntimeAttributes(t *testing.T) {
	cfg := &Config{
		ServiceName:    "sortbench",
		ServiceVersion: "test",
	}

	res, err := buildResource(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildResource failed: %v", err)
	}

	var sawVersion, sawCPUCount bool
	for _, attr := range res.Attributes() {
		switch string(attr.Key) {
		case "process.runtime.version":
			if attr.Value.AsString() != runtime.Version() {
				t.Errorf("Expected runtime version %s, got %s", runtime.Version(), attr.Value.AsString())
			}
			sawVersion = true
		case "host.cpu.count":
			if attr.Value.AsInt64() != int64(runtime.NumCPU()) {
				t.Errorf("Expected cpu count %d, got %d", runtime.NumCPU(), attr.Value.AsInt64())
			}
			sawCPUCount = true
		case "service.name":
			if !strings.Contains(attr.Value.AsString(), "sortbench") {
				t.Errorf("Expected service name to contain sortbench, got %s", attr.Value.AsString())
			}
		}
	}

	if !sawVersion {
		t.Error("Expected process.runtime.version attribute")
	}
	if !sawCPUCount {
		t.Error("Expected host.cpu.count attribute")
	}
}
