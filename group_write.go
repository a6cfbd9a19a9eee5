package h5ref

import (
	"fmt"
	"strings"

	"github.com/scigolib/h5ref/internal/core"
	"github.com/scigolib/h5ref/internal/writer"
)

// rootGroup is the compact root group of a file being written.
// Its header has a fixed capacity and is rewritten in place as links
// are added.
type rootGroup struct {
	address uint64
	header  *core.ObjectHeaderWriter
	links   map[string]uint64
	order   []string
}

func newRootGroup(w *writer.FileWriter, capacity uint64) (*rootGroup, error) {
	header := &core.ObjectHeaderWriter{
		Messages: []core.MessageWriter{
			{Type: core.MsgLinkInfo, Data: core.NewCompactLinkInfo().Encode()},
			{Type: core.MsgGroupInfo, Data: core.EncodeGroupInfoMessage()},
		},
		Capacity: capacity,
	}
	if header.ChunkSize() > capacity {
		return nil, fmt.Errorf("root group capacity %d too small", capacity)
	}

	addr, err := w.Allocate(header.Size())
	if err != nil {
		return nil, fmt.Errorf("allocate root group: %w", err)
	}
	if err := header.WriteTo(w, addr); err != nil {
		return nil, fmt.Errorf("write root group: %w", err)
	}

	return &rootGroup{
		address: addr,
		header:  header,
		links:   make(map[string]uint64),
	}, nil
}

// linkName validates a root-level path such as "/testDs" and returns the
// link name.
func linkName(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty name", ErrNotFound)
	}
	if path[0] != '/' {
		return "", fmt.Errorf("name must start with '/' (got %q)", path)
	}
	name := path[1:]
	if name == "" {
		return "", fmt.Errorf("name %q does not name a dataset", path)
	}
	if strings.Contains(name, "/") {
		return "", fmt.Errorf("nested groups are not supported (got %q)", path)
	}
	return name, nil
}

// lookup resolves a path to the address of the linked object header.
func (g *rootGroup) lookup(path string) (uint64, error) {
	name, err := linkName(path)
	if err != nil {
		return 0, err
	}
	addr, ok := g.links[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	return addr, nil
}

// checkRoom reports whether a link called name can be added. The link
// message size does not depend on the target address.
func (g *rootGroup) checkRoom(name string) error {
	_, err := g.linkMessage(name, 0)
	return err
}

func (g *rootGroup) linkMessage(name string, target uint64) ([]byte, error) {
	if _, ok := g.links[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrExists, "/"+name)
	}
	data, err := core.EncodeLinkMessage(&core.LinkMessage{
		Type:    core.LinkTypeHard,
		Name:    name,
		Address: target,
	})
	if err != nil {
		return nil, err
	}
	if !g.header.Fits(len(data)) {
		return nil, fmt.Errorf("root group full: link %q needs %d bytes (see WithRootGroupCapacity)", name, len(data)+4)
	}
	return data, nil
}

// link adds a hard link and rewrites the group header.
func (g *rootGroup) link(w *writer.FileWriter, name string, target uint64) error {
	data, err := g.linkMessage(name, target)
	if err != nil {
		return err
	}

	g.header.Messages = append(g.header.Messages, core.MessageWriter{Type: core.MsgLink, Data: data})
	if err := g.header.WriteTo(w, g.address); err != nil {
		g.header.Messages = g.header.Messages[:len(g.header.Messages)-1]
		return fmt.Errorf("rewrite root group: %w", err)
	}

	g.links[name] = target
	g.order = append(g.order, name)
	return nil
}
