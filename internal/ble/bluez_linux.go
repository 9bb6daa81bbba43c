//go:build linux

package ble

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

// BlueZ D-Bus names.
const (
	bluezService       = "org.bluez"
	bluezAdapterIface  = "org.bluez.Adapter1"
	bluezDeviceIface   = "org.bluez.Device1"
	bluezServiceIface  = "org.bluez.GattService1"
	bluezCharIface     = "org.bluez.GattCharacteristic1"
	dbusManagedObjects = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"
	dbusGetAll         = "org.freedesktop.DBus.Properties.GetAll"
)

type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// BlueZManager drives the BlueZ daemon over the system bus. Unlike the
// tinygo backend it can list previously known devices, read the Connected
// property and report real characteristic flags.
type BlueZManager struct {
	conn           *dbus.Conn
	resolveTimeout time.Duration // how long to wait for ServicesResolved
	pollInterval   time.Duration
}

// NewBlueZManager connects to the system bus.
func NewBlueZManager() (*BlueZManager, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("ble: connect to system bus: %w", err)
	}
	return &BlueZManager{
		conn:           conn,
		resolveTimeout: 10 * time.Second,
		pollInterval:   100 * time.Millisecond,
	}, nil
}

func newBlueZManager() (Manager, error) {
	return NewBlueZManager()
}

func (m *BlueZManager) objects(ctx context.Context) (managedObjects, error) {
	var objs managedObjects
	call := m.conn.Object(bluezService, "/").CallWithContext(ctx, dbusManagedObjects, 0)
	if err := call.Store(&objs); err != nil {
		return nil, fmt.Errorf("ble: bluez managed objects: %w", err)
	}
	return objs, nil
}

// Adapters returns the BlueZ adapters sorted by object path (hci0 first).
func (m *BlueZManager) Adapters(ctx context.Context) ([]Adapter, error) {
	objs, err := m.objects(ctx)
	if err != nil {
		return nil, err
	}
	paths := adapterPaths(objs)
	adapters := make([]Adapter, 0, len(paths))
	for _, p := range paths {
		adapters = append(adapters, &bluezAdapter{m: m, path: p})
	}
	return adapters, nil
}

var _ Manager = (*BlueZManager)(nil)

type bluezAdapter struct {
	m    *BlueZManager
	path dbus.ObjectPath
}

func (a *bluezAdapter) Peripherals(ctx context.Context) ([]Peripheral, error) {
	objs, err := a.m.objects(ctx)
	if err != nil {
		return nil, err
	}
	var ps []Peripheral
	for _, d := range devicesOf(objs, a.path) {
		ps = append(ps, &bluezPeripheral{m: a.m, path: d.path, addr: d.addr})
	}
	return ps, nil
}

func (a *bluezAdapter) StartScan(ctx context.Context) error {
	return a.m.conn.Object(bluezService, a.path).CallWithContext(ctx, bluezAdapterIface+".StartDiscovery", 0).Err
}

func (a *bluezAdapter) StopScan(ctx context.Context) error {
	return a.m.conn.Object(bluezService, a.path).CallWithContext(ctx, bluezAdapterIface+".StopDiscovery", 0).Err
}

type bluezPeripheral struct {
	m     *BlueZManager
	path  dbus.ObjectPath
	addr  Address
	chars []Characteristic
}

func (p *bluezPeripheral) obj() dbus.BusObject {
	return p.m.conn.Object(bluezService, p.path)
}

func (p *bluezPeripheral) Address() Address { return p.addr }

func (p *bluezPeripheral) Properties(ctx context.Context) (*PeripheralProperties, error) {
	var props map[string]dbus.Variant
	if err := p.obj().CallWithContext(ctx, dbusGetAll, 0, bluezDeviceIface).Store(&props); err != nil {
		return nil, fmt.Errorf("ble: device properties: %w", err)
	}
	return peripheralProperties(props), nil
}

func (p *bluezPeripheral) Connect(ctx context.Context) error {
	return p.obj().CallWithContext(ctx, bluezDeviceIface+".Connect", 0).Err
}

func (p *bluezPeripheral) Disconnect(ctx context.Context) error {
	return p.obj().CallWithContext(ctx, bluezDeviceIface+".Disconnect", 0).Err
}

func (p *bluezPeripheral) IsConnected(ctx context.Context) (bool, error) {
	return p.boolProperty("Connected")
}

func (p *bluezPeripheral) boolProperty(name string) (bool, error) {
	v, err := p.obj().GetProperty(bluezDeviceIface + "." + name)
	if err != nil {
		return false, err
	}
	b, _ := v.Value().(bool)
	return b, nil
}

// DiscoverServices waits for BlueZ to finish resolving the GATT table, which
// it does on its own after Connect, then snapshots the characteristics.
func (p *bluezPeripheral) DiscoverServices(ctx context.Context) error {
	deadline := time.Now().Add(p.m.resolveTimeout)
	for {
		resolved, err := p.boolProperty("ServicesResolved")
		if err != nil {
			return fmt.Errorf("ble: services resolved: %w", err)
		}
		if resolved {
			break
		}
		if time.Now().After(deadline) {
			return errors.New("ble: timed out waiting for services to resolve")
		}
		if err := sleep(ctx, p.m.pollInterval); err != nil {
			return err
		}
	}

	objs, err := p.m.objects(ctx)
	if err != nil {
		return err
	}
	p.chars = characteristicsOf(objs, p.path)
	return nil
}

func (p *bluezPeripheral) Characteristics() []Characteristic {
	out := make([]Characteristic, len(p.chars))
	copy(out, p.chars)
	return out
}

func (p *bluezPeripheral) Write(ctx context.Context, c Characteristic, data []byte, mode WriteType) error {
	path, ok := c.handle.(dbus.ObjectPath)
	if !ok {
		return fmt.Errorf("ble: characteristic %s does not belong to this backend", c.UUID)
	}
	writeType := "command"
	if mode == WriteWithResponse {
		writeType = "request"
	}
	opts := map[string]dbus.Variant{"type": dbus.MakeVariant(writeType)}
	return p.m.conn.Object(bluezService, path).CallWithContext(ctx, bluezCharIface+".WriteValue", 0, data, opts).Err
}

var (
	_ Adapter    = (*bluezAdapter)(nil)
	_ Peripheral = (*bluezPeripheral)(nil)
)

func adapterPaths(objs managedObjects) []dbus.ObjectPath {
	var paths []dbus.ObjectPath
	for path, ifaces := range objs {
		if _, ok := ifaces[bluezAdapterIface]; ok {
			paths = append(paths, path)
		}
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })
	return paths
}

type bluezDevice struct {
	path dbus.ObjectPath
	addr Address
}

// devicesOf returns the devices registered under adapter, sorted by path.
// Entries with an unparseable address are skipped.
func devicesOf(objs managedObjects, adapter dbus.ObjectPath) []bluezDevice {
	var devs []bluezDevice
	for path, ifaces := range objs {
		dev, ok := ifaces[bluezDeviceIface]
		if !ok {
			continue
		}
		if owner, _ := dev["Adapter"].Value().(dbus.ObjectPath); owner != adapter {
			continue
		}
		s, _ := dev["Address"].Value().(string)
		addr, err := ParseAddress(s)
		if err != nil {
			continue
		}
		devs = append(devs, bluezDevice{path: path, addr: addr})
	}
	sort.Slice(devs, func(i, j int) bool { return devs[i].path < devs[j].path })
	return devs
}

// characteristicsOf returns the characteristics below device in handle order.
// BlueZ names objects serviceXXXX/charYYYY by handle, so path order is handle
// order.
func characteristicsOf(objs managedObjects, device dbus.ObjectPath) []Characteristic {
	prefix := string(device) + "/"
	var paths []dbus.ObjectPath
	for path, ifaces := range objs {
		if _, ok := ifaces[bluezCharIface]; ok && strings.HasPrefix(string(path), prefix) {
			paths = append(paths, path)
		}
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	chars := make([]Characteristic, 0, len(paths))
	for _, path := range paths {
		props := objs[path][bluezCharIface]
		uuid, _ := props["UUID"].Value().(string)
		flags, _ := props["Flags"].Value().([]string)
		var service string
		if svcPath, ok := props["Service"].Value().(dbus.ObjectPath); ok {
			service, _ = objs[svcPath][bluezServiceIface]["UUID"].Value().(string)
		}
		chars = append(chars, Characteristic{
			UUID:       uuid,
			Service:    service,
			Properties: parseFlags(flags),
			handle:     path,
		})
	}
	return chars
}

func parseFlags(flags []string) Property {
	var p Property
	for _, f := range flags {
		switch f {
		case "read":
			p |= PropRead
		case "write":
			p |= PropWrite
		case "write-without-response":
			p |= PropWriteWithoutResponse
		case "notify":
			p |= PropNotify
		case "indicate":
			p |= PropIndicate
		}
	}
	return p
}

func peripheralProperties(props map[string]dbus.Variant) *PeripheralProperties {
	pp := &PeripheralProperties{}
	if name, ok := props["Name"].Value().(string); ok {
		pp.Name = name
	} else if alias, ok := props["Alias"].Value().(string); ok {
		pp.Name = alias
	}
	if rssi, ok := props["RSSI"].Value().(int16); ok {
		pp.RSSI = rssi
		pp.HasRSSI = true
	}
	return pp
}
