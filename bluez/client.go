package bluez

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"bluescout/gatt"
)

const resolveTimeout = 10 * time.Second

var ErrResolveTimeout = errors.New("timed out waiting for services to resolve")

// ConnectHandler receives what happens on a connection.
type ConnectHandler struct {
	Connected func(connected bool)
	Services  func([]gatt.RawService)
	Failed    func(error)
}

// Client connects to one device at a time and reads its attribute table.
type Client struct {
	conn    *dbus.Conn
	adapter dbus.ObjectPath

	mu     sync.Mutex
	active *connection
}

type connection struct {
	devicePath dbus.ObjectPath
	signals    chan *dbus.Signal
	match      []dbus.MatchOption
	stop       chan struct{}
	done       chan struct{}
}

func NewClient(conn *dbus.Conn, adapter dbus.ObjectPath) *Client {
	return &Client{conn: conn, adapter: adapter}
}

// Connect connects to addr and returns once the link is up. Service
// resolution and disconnects are reported to h from a watcher goroutine.
func (c *Client) Connect(ctx context.Context, addr string, h ConnectHandler) error {
	if err := c.Disconnect(); err != nil {
		return err
	}

	devicePath := PathFromAddr(c.adapter, addr)
	cn := &connection{
		devicePath: devicePath,
		signals:    make(chan *dbus.Signal, 16),
		match: []dbus.MatchOption{
			dbus.WithMatchObjectPath(devicePath),
			dbus.WithMatchInterface(ifaceProperties),
			dbus.WithMatchMember("PropertiesChanged"),
		},
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	if err := c.conn.AddMatchSignal(cn.match...); err != nil {
		return fmt.Errorf("AddMatch: %w", err)
	}
	c.conn.Signal(cn.signals)

	obj := c.conn.Object(bluezDest, devicePath)
	if err := obj.CallWithContext(ctx, ifaceDevice+".Connect", 0).Err; err != nil {
		c.release(cn)
		return fmt.Errorf("Connect: %w", err)
	}

	c.mu.Lock()
	c.active = cn
	c.mu.Unlock()

	h.Connected(true)
	go c.watch(cn, h)
	return nil
}

func (c *Client) watch(cn *connection, h ConnectHandler) {
	defer close(cn.done)

	resolved := false
	if v, err := c.conn.Object(bluezDest, cn.devicePath).GetProperty(ifaceDevice + ".ServicesResolved"); err == nil {
		resolved, _ = v.Value().(bool)
	}
	if resolved && !c.deliver(cn, h) {
		return
	}

	timeout := time.NewTimer(resolveTimeout)
	defer timeout.Stop()
	if resolved {
		timeout.Stop()
	}

	for {
		select {
		case <-cn.stop:
			return
		case <-timeout.C:
			h.Failed(ErrResolveTimeout)
			return
		case sig, ok := <-cn.signals:
			if !ok {
				h.Failed(ErrBusClosed)
				return
			}
			if sig.Path != cn.devicePath || len(sig.Body) < 2 {
				continue
			}
			if iface, _ := sig.Body[0].(string); iface != ifaceDevice {
				continue
			}
			changed, ok := sig.Body[1].(map[string]dbus.Variant)
			if !ok {
				continue
			}
			if v, ok := changed["Connected"]; ok {
				if up, _ := v.Value().(bool); !up {
					h.Connected(false)
					return
				}
			}
			if v, ok := changed["ServicesResolved"]; ok && !resolved {
				if r, _ := v.Value().(bool); r {
					resolved = true
					timeout.Stop()
					if !c.deliver(cn, h) {
						return
					}
				}
			}
		}
	}
}

// deliver reads the resolved attribute table and hands it to h.
func (c *Client) deliver(cn *connection, h ConnectHandler) bool {
	objs, err := managedObjects(c.conn)
	if err != nil {
		h.Failed(err)
		return false
	}
	h.Services(ServicesFromObjects(cn.devicePath, objs))
	return true
}

// Disconnect drops the current connection, if any.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	cn := c.active
	c.active = nil
	c.mu.Unlock()
	if cn == nil {
		return nil
	}

	close(cn.stop)
	<-cn.done
	c.release(cn)

	err := c.conn.Object(bluezDest, cn.devicePath).Call(ifaceDevice+".Disconnect", 0).Err
	if err != nil {
		return fmt.Errorf("Disconnect: %w", err)
	}
	return nil
}

func (c *Client) release(cn *connection) {
	c.conn.RemoveSignal(cn.signals)
	_ = c.conn.RemoveMatchSignal(cn.match...)
}

// ServicesFromObjects collects the services, characteristics and descriptor
// counts below devicePath in handle order.
func ServicesFromObjects(devicePath dbus.ObjectPath, objs Objects) []gatt.RawService {
	var out []gatt.RawService
	for _, svcPath := range objs.under(devicePath, ifaceService) {
		props := objs[svcPath][ifaceService]
		uuid, _ := str(props, "UUID")
		primary, _ := props["Primary"].Value().(bool)

		rs := gatt.RawService{UUID: uuid, Primary: primary}
		for _, charPath := range objs.under(svcPath, ifaceCharacteristic) {
			cp := objs[charPath][ifaceCharacteristic]
			cu, _ := str(cp, "UUID")
			flags, _ := cp["Flags"].Value().([]string)
			p, perm, wt := MapFlags(flags)
			rs.Characteristics = append(rs.Characteristics, gatt.RawCharacteristic{
				UUID:        cu,
				Properties:  p,
				Permissions: perm,
				WriteType:   wt,
				Descriptors: len(objs.under(charPath, ifaceDescriptor)),
			})
		}
		out = append(out, rs)
	}
	return out
}
