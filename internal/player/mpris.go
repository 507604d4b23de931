package player

import (
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
	mprisPrefix      = "org.mpris.MediaPlayer2."
)

// MPRIS reads the player directly over the D-Bus session bus instead of
// shelling out to playerctl.
type MPRIS struct {
	bus     *dbus.Conn
	service string
}

// NewMPRIS connects to the session bus. An empty name follows the first
// MPRIS service found; otherwise name may be the full bus name or its suffix
// ("spotify").
func NewMPRIS(name string) (*MPRIS, error) {
	bus, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	if name != "" && !strings.HasPrefix(name, mprisPrefix) {
		name = mprisPrefix + name
	}
	return &MPRIS{bus: bus, service: name}, nil
}

// ListServices returns the MPRIS bus names currently on the session bus.
func ListServices(bus *dbus.Conn) ([]string, error) {
	var names []string
	if err := bus.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("failed to list bus names: %w", err)
	}

	var services []string
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			services = append(services, name)
		}
	}
	return services, nil
}

func (m *MPRIS) object() (dbus.BusObject, error) {
	service := m.service
	if service == "" {
		services, err := ListServices(m.bus)
		if err != nil {
			return nil, err
		}
		if len(services) == 0 {
			return nil, ErrNotPlaying
		}
		service = services[0]
	}
	return m.bus.Object(service, mprisPath), nil
}

// CurrentTrack returns the metadata of the playing track.
func (m *MPRIS) CurrentTrack() (Track, error) {
	obj, err := m.object()
	if err != nil {
		return Track{}, err
	}

	prop, err := obj.GetProperty(mprisPlayerIface + ".Metadata")
	if err != nil {
		return Track{}, ErrNotPlaying
	}
	metadata, ok := prop.Value().(map[string]dbus.Variant)
	if !ok {
		return Track{}, fmt.Errorf("unexpected metadata type %T", prop.Value())
	}
	return trackFromMetadata(metadata)
}

// Position returns the playback position.
func (m *MPRIS) Position() (time.Duration, error) {
	obj, err := m.object()
	if err != nil {
		return 0, err
	}

	prop, err := obj.GetProperty(mprisPlayerIface + ".Position")
	if err != nil {
		return 0, fmt.Errorf("failed to get position property: %w", err)
	}
	us, ok := prop.Value().(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected position type %T", prop.Value())
	}
	if us < 0 {
		us = 0
	}
	return time.Duration(us) * time.Microsecond, nil
}

// Close releases the bus connection.
func (m *MPRIS) Close() error {
	return m.bus.Close()
}

func trackFromMetadata(metadata map[string]dbus.Variant) (Track, error) {
	t := Track{
		Title:  strings.TrimSpace(variantString(metadata["xesam:title"])),
		Artist: strings.TrimSpace(variantString(metadata["xesam:artist"])),
		Album:  strings.TrimSpace(variantString(metadata["xesam:album"])),
		Path:   filePath(variantString(metadata["xesam:url"])),
	}

	// mpris:length is in microseconds; players disagree on int64 vs uint64
	switch v := metadata["mpris:length"].Value().(type) {
	case int64:
		t.Duration = time.Duration(v) * time.Microsecond
	case uint64:
		t.Duration = time.Duration(v) * time.Microsecond
	case int32:
		t.Duration = time.Duration(v) * time.Microsecond
	}
	if t.Duration < 0 {
		t.Duration = 0
	}

	if t.Title == "" && t.Path == "" {
		return Track{}, ErrNotPlaying
	}
	return t, nil
}

func variantString(v dbus.Variant) string {
	switch typed := v.Value().(type) {
	case string:
		return typed
	case []string:
		// xesam:artist is a list
		return strings.Join(typed, ", ")
	default:
		return ""
	}
}
