// Package dispatch binds inbound broker messages to service operations. It
// distinguishes request/reply commands, which always produce a response
// envelope, from fire-and-forget events, which never do.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/simplepost/simplepost/pkg/simplepost"
)

// Command names handled with a reply.
const (
	CmdCreatePost = "create_post"
	CmdGetPosts   = "get_posts"
	CmdGetPost    = "get_post"
	CmdUpdatePost = "update_post"
	CmdDeletePost = "delete_post"
)

// ErrUnknownCommand indicates a message named an operation nobody handles.
var ErrUnknownCommand = fmt.Errorf("unknown command")

type commandHandler func(ctx context.Context, payload []byte) *Envelope

type eventHandler func(ctx context.Context, payload []byte) error

// Dispatcher routes command and event names to handlers.
type Dispatcher struct {
	service  simplepost.Service
	logger   *slog.Logger
	commands map[string]commandHandler
	events   map[string]eventHandler
}

// NewDispatcher binds the post service's operations to their wire names.
func NewDispatcher(service simplepost.Service, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{service: service, logger: logger}

	d.commands = map[string]commandHandler{
		CmdCreatePost: d.createPost,
		CmdGetPosts:   d.getPosts,
		CmdGetPost:    d.getPost,
		CmdUpdatePost: d.updatePost,
		CmdDeletePost: d.deletePost,
	}
	d.events = map[string]eventHandler{
		simplepost.EventPostCreated: d.postCreated,
		simplepost.EventPostUpdated: d.postUpdated,
		simplepost.EventPostDeleted: d.postDeleted,
	}
	return d
}

// HandlesEvent reports whether name is a known fire-and-forget event.
func (d *Dispatcher) HandlesEvent(name string) bool {
	_, ok := d.events[name]
	return ok
}

// DispatchCommand runs a request/reply command and always returns an
// envelope, failure or not. ErrUnknownCommand is the only error.
func (d *Dispatcher) DispatchCommand(ctx context.Context, name string, payload []byte) (*Envelope, error) {
	handler, ok := d.commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return handler(ctx, payload), nil
}

// DispatchEvent runs an event handler for side effects only. Failures are
// logged and never re-raised; there is no reply and no retry at this layer.
func (d *Dispatcher) DispatchEvent(ctx context.Context, name string, payload []byte) {
	handler, ok := d.events[name]
	if !ok {
		d.logger.Warn("unknown event", "event", name)
		return
	}
	if err := handler(ctx, payload); err != nil {
		d.logger.Error("event handler failed", "event", name, "err", err)
	}
}

// Command handlers

func (d *Dispatcher) createPost(ctx context.Context, payload []byte) *Envelope {
	var req simplepost.CreatePostRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return errorEnvelope(&simplepost.InvalidInputError{Reason: "malformed payload"}, "/posts")
	}

	post, err := d.service.CreatePost(ctx, req)
	if err != nil {
		return errorEnvelope(err, "/posts")
	}
	return successEnvelope(post, "Post created successfully", "/posts", 201)
}

func (d *Dispatcher) getPosts(ctx context.Context, payload []byte) *Envelope {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return errorEnvelope(&simplepost.InvalidInputError{Reason: "malformed payload"}, "/posts")
	}

	posts, err := d.service.FindAll(ctx, req.UserID)
	if err != nil {
		return errorEnvelope(err, "/posts")
	}
	return successEnvelope(posts, "Posts retrieved successfully", "/posts", 200)
}

func (d *Dispatcher) getPost(ctx context.Context, payload []byte) *Envelope {
	var req struct {
		ID     string `json:"id"`
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return errorEnvelope(&simplepost.InvalidInputError{Reason: "malformed payload"}, "/posts")
	}
	path := "/posts/" + req.ID

	post, err := d.service.FindPost(ctx, req.ID, req.UserID)
	if err != nil {
		return errorEnvelope(err, path)
	}
	return successEnvelope(post, "Post retrieved successfully", path, 200)
}

func (d *Dispatcher) updatePost(ctx context.Context, payload []byte) *Envelope {
	var req struct {
		ID         string                       `json:"id"`
		UpdateData simplepost.UpdatePostRequest `json:"updateData"`
		UserID     string                       `json:"userId"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return errorEnvelope(&simplepost.InvalidInputError{Reason: "malformed payload"}, "/posts")
	}
	path := "/posts/" + req.ID

	post, err := d.service.UpdatePost(ctx, req.ID, req.UpdateData, req.UserID)
	if err != nil {
		return errorEnvelope(err, path)
	}
	return successEnvelope(post, "Post updated successfully", path, 200)
}

func (d *Dispatcher) deletePost(ctx context.Context, payload []byte) *Envelope {
	var req struct {
		ID     string `json:"id"`
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return errorEnvelope(&simplepost.InvalidInputError{Reason: "malformed payload"}, "/posts")
	}
	path := "/posts/" + req.ID

	if err := d.service.DeletePost(ctx, req.ID, req.UserID); err != nil {
		return errorEnvelope(err, path)
	}
	return successEnvelope(nil, "Post deleted successfully", path, 200)
}

// Event handlers

func (d *Dispatcher) postCreated(ctx context.Context, payload []byte) error {
	var post simplepost.Post
	if err := json.Unmarshal(payload, &post); err != nil {
		return fmt.Errorf("decode post_created: %w", err)
	}
	d.service.HandlePostCreated(ctx, &post)
	return nil
}

func (d *Dispatcher) postUpdated(ctx context.Context, payload []byte) error {
	var post simplepost.Post
	if err := json.Unmarshal(payload, &post); err != nil {
		return fmt.Errorf("decode post_updated: %w", err)
	}
	d.service.HandlePostUpdated(ctx, &post)
	return nil
}

func (d *Dispatcher) postDeleted(ctx context.Context, payload []byte) error {
	var event simplepost.PostDeletedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("decode post_deleted: %w", err)
	}
	d.service.HandlePostDeleted(ctx, event.ID)
	return nil
}
