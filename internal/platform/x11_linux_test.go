//go:build linux

package platform

import (
	"errors"
	"testing"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/viewhost/internal/x11"
)

type fakeSurfaceWriter struct {
	props     map[string]string
	failOn    string
	destroyed []xproto.Window
}

func (f *fakeSurfaceWriter) SetStringProp(_ xproto.Window, prop, value string) error {
	if prop == f.failOn {
		return errors.New("BadAlloc")
	}
	f.props[prop] = value
	return nil
}

func (f *fakeSurfaceWriter) SetCardinalProp(_ xproto.Window, prop string, _ uint) error {
	if prop == f.failOn {
		return errors.New("BadAlloc")
	}
	f.props[prop] = "1"
	return nil
}

func (f *fakeSurfaceWriter) Destroy(id xproto.Window) error {
	f.destroyed = append(f.destroyed, id)
	return nil
}

func TestPublishSurface(t *testing.T) {
	spec := ViewportSpec{
		Label:          "webview-1",
		URL:            "https://example.com",
		ClientIdentity: "mobile-agent",
		Devtools:       true,
	}
	tests := []struct {
		name        string
		failOn      string
		wantErr     bool
		wantDestroy bool
	}{
		{"all properties written", "", false, false},
		{"label fails", x11.PropLabel, true, true},
		{"url fails", x11.PropURL, true, true},
		{"devtools fails", x11.PropDevtools, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &fakeSurfaceWriter{props: make(map[string]string), failOn: tt.failOn}
			err := publishSurface(w, 42, spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("publishSurface() error = %v, wantErr %v", err, tt.wantErr)
			}
			if destroyed := len(w.destroyed) == 1 && w.destroyed[0] == 42; destroyed != tt.wantDestroy {
				t.Fatalf("destroyed = %v, want destroy %v", w.destroyed, tt.wantDestroy)
			}
			if !tt.wantErr && (w.props[x11.PropLabel] != "webview-1" || w.props[x11.PropDevtools] != "1") {
				t.Fatalf("props = %v", w.props)
			}
		})
	}
}

type fakeGeometryReader struct{ err error }

func (f fakeGeometryReader) WindowGeometry(xproto.Window) (x11.Geometry, error) {
	return x11.Geometry{Width: 375, Height: 667}, f.err
}

func TestLost_DropsVanishedWindow(t *testing.T) {
	tk := &X11Toolkit{windows: map[string]xproto.Window{"window-1": 7}}
	queryErr := errors.New("BadWindow")

	err := tk.lost(fakeGeometryReader{err: errors.New("BadDrawable")}, "window-1", 7, queryErr)
	if !errors.Is(err, ErrNoSuchWindow) {
		t.Fatalf("error = %v, want ErrNoSuchWindow", err)
	}
	if _, ok := tk.windows["window-1"]; ok {
		t.Fatal("vanished window still tracked")
	}
}

func TestLost_KeepsLiveWindow(t *testing.T) {
	tk := &X11Toolkit{windows: map[string]xproto.Window{"window-1": 7}}
	queryErr := errors.New("BadWindow")

	err := tk.lost(fakeGeometryReader{}, "window-1", 7, queryErr)
	if !errors.Is(err, queryErr) || errors.Is(err, ErrNoSuchWindow) {
		t.Fatalf("error = %v, want the original query error", err)
	}
	if _, ok := tk.windows["window-1"]; !ok {
		t.Fatal("live window was dropped")
	}
}
