package core

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/webchat/internal/logx"
	"pkt.systems/webchat/schema"
)

// toolRegistry holds the custom selection tools and toolbar settings.
// Store I/O happens under its own lock, never under the coordinator lock.
type toolRegistry struct {
	store  KVStore
	sink   EventSink
	logger pslog.Logger

	mu      sync.Mutex
	loaded  bool
	tools   []schema.Tool
	toolbar schema.ToolbarSettings
}

func newToolRegistry(store KVStore, sink EventSink, logger pslog.Logger) *toolRegistry {
	return &toolRegistry{
		store:   store,
		sink:    sink,
		logger:  logger,
		toolbar: schema.DefaultToolbarSettings(),
	}
}

func (r *toolRegistry) loadLocked(ctx context.Context) error {
	if r.loaded {
		return nil
	}
	var tools []schema.Tool
	if _, err := loadJSON(ctx, r.store, KeyCustomTools, &tools); err != nil {
		return err
	}
	toolbar := schema.DefaultToolbarSettings()
	found, err := loadJSON(ctx, r.store, KeyToolbarSettings, &toolbar)
	if err != nil {
		return err
	}
	if !found {
		if err := saveJSON(ctx, r.store, KeyToolbarSettings, toolbar); err != nil {
			return err
		}
		r.logger.Info("tools toolbar settings seeded", "enabled", toolbar.Enabled)
	}
	r.tools = tools
	r.toolbar = toolbar
	r.loaded = true
	return nil
}

func (r *toolRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tools)
}

func (r *toolRegistry) snapshotLocked() []schema.Tool {
	out := make([]schema.Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

func (r *toolRegistry) find(ctx context.Context, id schema.ToolID) (schema.Tool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.loadLocked(ctx); err != nil {
		return schema.Tool{}, err
	}
	for _, tool := range r.tools {
		if tool.ID == id {
			return tool, nil
		}
	}
	return schema.Tool{}, schema.ErrToolNotFound
}

// commitLocked persists the candidate list, then swaps it in and broadcasts.
func (r *toolRegistry) commitLocked(ctx context.Context, tools []schema.Tool) error {
	if tools == nil {
		tools = []schema.Tool{}
	}
	if err := saveJSON(ctx, r.store, KeyCustomTools, tools); err != nil {
		return err
	}
	r.tools = tools
	r.sink.OnToolsUpdated(schema.ToolsUpdate{Tools: r.snapshotLocked()})
	return nil
}

// InitTools loads persisted tools and toolbar settings, seeding the toolbar
// default on first start.
func (c *Coordinator) InitTools(ctx context.Context) error {
	c.tools.mu.Lock()
	defer c.tools.mu.Unlock()
	if err := c.tools.loadLocked(ctx); err != nil {
		c.logger.Warn("tools load failed", "err", err)
		return err
	}
	c.logger.Info("tools loaded", "tools", len(c.tools.tools), "toolbar_enabled", c.tools.toolbar.Enabled)
	return nil
}

// Tools returns the custom tool list.
func (c *Coordinator) Tools(ctx context.Context) ([]schema.Tool, error) {
	c.tools.mu.Lock()
	defer c.tools.mu.Unlock()
	if err := c.tools.loadLocked(ctx); err != nil {
		return nil, err
	}
	return c.tools.snapshotLocked(), nil
}

// AddTool creates a tool with a fresh id, persists the list and broadcasts it.
func (c *Coordinator) AddTool(ctx context.Context, tool schema.Tool) (schema.Tool, error) {
	tool.ID = schema.ToolID(newID())
	tool, err := schema.NormalizeTool(tool)
	if err != nil {
		return schema.Tool{}, err
	}
	r := c.tools
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.loadLocked(ctx); err != nil {
		return schema.Tool{}, err
	}
	next := append(r.snapshotLocked(), tool)
	if err := r.commitLocked(ctx, next); err != nil {
		logx.Ctx(ctx).Warn("tools add failed", "tool", tool.ID, "err", err)
		return schema.Tool{}, err
	}
	logx.Ctx(ctx).Info("tools added", "tool", tool.ID, "name", tool.Name)
	return tool, nil
}

// UpdateTool replaces the tool with the same id.
func (c *Coordinator) UpdateTool(ctx context.Context, tool schema.Tool) (schema.Tool, error) {
	tool, err := schema.NormalizeTool(tool)
	if err != nil {
		return schema.Tool{}, err
	}
	if tool.ID == "" {
		return schema.Tool{}, schema.ErrInvalidTool
	}
	r := c.tools
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.loadLocked(ctx); err != nil {
		return schema.Tool{}, err
	}
	next := r.snapshotLocked()
	found := false
	for i := range next {
		if next[i].ID == tool.ID {
			next[i] = tool
			found = true
			break
		}
	}
	if !found {
		return schema.Tool{}, schema.ErrToolNotFound
	}
	if err := r.commitLocked(ctx, next); err != nil {
		logx.Ctx(ctx).Warn("tools update failed", "tool", tool.ID, "err", err)
		return schema.Tool{}, err
	}
	logx.Ctx(ctx).Info("tools updated", "tool", tool.ID)
	return tool, nil
}

// DeleteTool removes the tool with the given id.
func (c *Coordinator) DeleteTool(ctx context.Context, id schema.ToolID) error {
	r := c.tools
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.loadLocked(ctx); err != nil {
		return err
	}
	next := make([]schema.Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		if tool.ID != id {
			next = append(next, tool)
		}
	}
	if len(next) == len(r.tools) {
		return schema.ErrToolNotFound
	}
	if err := r.commitLocked(ctx, next); err != nil {
		logx.Ctx(ctx).Warn("tools delete failed", "tool", id, "err", err)
		return err
	}
	logx.Ctx(ctx).Info("tools deleted", "tool", id)
	return nil
}

// ToolbarSettings returns the producer toolbar settings.
func (c *Coordinator) ToolbarSettings(ctx context.Context) (schema.ToolbarSettings, error) {
	c.tools.mu.Lock()
	defer c.tools.mu.Unlock()
	if err := c.tools.loadLocked(ctx); err != nil {
		return schema.ToolbarSettings{}, err
	}
	return c.tools.toolbar, nil
}

// UpdateToolbarSettings persists the settings and broadcasts them to producers.
func (c *Coordinator) UpdateToolbarSettings(ctx context.Context, settings schema.ToolbarSettings) (schema.ToolbarSettings, error) {
	r := c.tools
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.loadLocked(ctx); err != nil {
		return schema.ToolbarSettings{}, err
	}
	if err := saveJSON(ctx, r.store, KeyToolbarSettings, settings); err != nil {
		logx.Ctx(ctx).Warn("tools toolbar update failed", "err", err)
		return schema.ToolbarSettings{}, err
	}
	r.toolbar = settings
	r.sink.OnToolbarSettings(settings)
	logx.Ctx(ctx).Info("tools toolbar updated", "enabled", settings.Enabled)
	return settings, nil
}

// InvokeTool quotes the selected text and requests an action using the tool's prompt.
func (c *Coordinator) InvokeTool(ctx context.Context, producer schema.ProducerID, id schema.ToolID, text string) (schema.ActionOutcome, schema.ActionID, error) {
	tool, err := c.tools.find(ctx, id)
	if err != nil {
		return "", "", err
	}
	if _, err := c.AddQuote(ctx, text); err != nil {
		return "", "", err
	}
	return c.RequestAction(ctx, producer, schema.ActionPayload{Text: text, Prompt: tool.Prompt}, "")
}
