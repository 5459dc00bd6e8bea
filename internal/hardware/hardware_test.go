package hardware

import "testing"

func TestFakeApplyCommitsPendingState(t *testing.T) {
	f := NewFake()
	f.SetZone(0, true)
	f.SetZone(1, true)

	if f.IsOn(0) {
		t.Error("expected zone 0 to not be on before Apply")
	}

	f.Apply()
	if !f.IsOn(0) || !f.IsOn(1) {
		t.Error("expected zones 0 and 1 to be on after Apply")
	}
	if len(f.AppliedLog) != 1 {
		t.Fatalf("AppliedLog has %d entries, want 1", len(f.AppliedLog))
	}
}

func TestFakeApplyRecordsEachSnapshot(t *testing.T) {
	f := NewFake()
	f.SetZone(0, true)
	f.Apply()
	f.SetZone(0, false)
	f.Apply()

	if len(f.AppliedLog) != 2 {
		t.Fatalf("AppliedLog has %d entries, want 2", len(f.AppliedLog))
	}
	if f.IsOn(0) {
		t.Error("expected zone 0 to be off after the second Apply")
	}
}

func TestFakeSensorSamplesRepeatLast(t *testing.T) {
	f := NewFake()
	f.RainSamples = []bool{false, true}

	if f.RainSensor() != false {
		t.Error("expected first RainSensor() call to return false")
	}
	if f.RainSensor() != true {
		t.Error("expected second RainSensor() call to return true")
	}
	if f.RainSensor() != true {
		t.Error("expected RainSensor() to keep returning the last sample once exhausted")
	}
}

func TestFakeSensorNoSamplesDefaultsFalse(t *testing.T) {
	f := NewFake()
	if f.RainSensor() {
		t.Error("expected RainSensor() with no scripted samples to return false")
	}
	if f.Button() {
		t.Error("expected Button() with no scripted samples to return false")
	}
}

func TestFakeRainInterruptFiresCallback(t *testing.T) {
	f := NewFake()
	var got bool
	var called bool
	f.RainInterrupt(func(v bool) {
		called = true
		got = v
	})

	f.FireRain(true)
	if !called {
		t.Fatal("expected rain callback to be invoked")
	}
	if !got {
		t.Error("expected callback to receive true")
	}
}

func TestFakeButtonInterruptFiresCallback(t *testing.T) {
	f := NewFake()
	var called bool
	f.ButtonInterrupt(func(bool) { called = true })

	f.FireButton(true)
	if !called {
		t.Fatal("expected button callback to be invoked")
	}
}

func TestFakeInterruptNoCallbackRegisteredIsSafe(t *testing.T) {
	f := NewFake()
	f.FireRain(true)
	f.FireButton(true)
}

func TestNullDriverAcceptsWritesSilently(t *testing.T) {
	n := NewNull()
	n.SetZone(0, true)
	n.Apply()

	if n.RainSensor() {
		t.Error("expected Null.RainSensor() to always report false")
	}
	if n.Button() {
		t.Error("expected Null.Button() to always report false")
	}
	if err := n.Configure(Config{}, nil); err != nil {
		t.Errorf("Configure returned error: %v", err)
	}
}

func TestNullDriverInterruptRegistrationIsNoop(t *testing.T) {
	n := NewNull()
	n.RainInterrupt(func(bool) { t.Error("Null driver must never fire a rain interrupt") })
	n.ButtonInterrupt(func(bool) { t.Error("Null driver must never fire a button interrupt") })
}
