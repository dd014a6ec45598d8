package repl

import (
	"context"
	"fmt"
	"io"
)

type command struct {
	name    string
	aliases []string
	args    string
	help    string
	// argument count bounds
	min, max int
	run      func(ctx context.Context, s *Session, w io.Writer, args []string) error
}

func (c *command) usage() string {
	if c.args == "" {
		return c.name
	}
	return fmt.Sprintf("%s %s", c.name, c.args)
}

func builtins() []*command {
	return []*command{
		{name: "GetResources", help: "list connectors, encoders, CRTCs, framebuffers and planes", run: getResources},
		{name: "GetProperties", args: "<kind> <h>", min: 2, max: 2, help: "list the properties of an object", run: getProperties},
		{name: "GetProperty", args: "<h>", min: 1, max: 1, help: "describe a property", run: getProperty},
		{name: "SetProperty", args: "<kind> <h> <prop> <value>", min: 4, max: 4, help: "set a property of an object", run: setProperty},
		{name: "DestroyFramebuffer", args: "<h>", min: 1, max: 1, help: "remove a framebuffer", run: destroyFramebuffer},
		{name: "GetConnector", args: "<h>", min: 1, max: 1, help: "show a connector", run: getConnector},
		{name: "GetEncoder", args: "<h>", min: 1, max: 1, help: "show an encoder", run: getEncoder},
		{name: "GetCrtc", args: "<h>", min: 1, max: 1, help: "show a CRTC", run: getCrtc},
		{name: "GetPlane", args: "<h>", min: 1, max: 1, help: "show a plane", run: getPlane},
		{name: "GetFramebuffer", args: "<h>", min: 1, max: 1, help: "show a framebuffer", run: getFramebuffer},
		{name: "GetBlob", args: "<h>", min: 1, max: 1, help: "dump a property blob", run: getBlob},
		{name: "GetCap", args: "<cap>", min: 1, max: 1, help: "query a driver capability", run: getCap},
		{name: "Capabilities", help: "query every driver capability", run: capabilities},
		{name: "SetClientCap", args: "<cap> <0/1>", min: 2, max: 2, help: "toggle a client capability", run: setClientCap},
		{name: "Load", args: "<src> [format]", min: 1, max: 2, help: "upload an image file or URL as a framebuffer", run: load},
		{name: "Images", help: "list uploaded images", run: images},
		{name: "SetPlane", args: "<plane> <crtc> <fb> [x y]", min: 3, max: 5, help: "show a framebuffer on a plane", run: setPlane},
		{name: "Help", help: "list commands", run: help},
		{name: "Quit", aliases: []string{"Exit"}, help: "leave the console", run: quit},
	}
}

func help(_ context.Context, s *Session, w io.Writer, _ []string) error {
	for _, c := range s.commands {
		fmt.Fprintf(w, "\t%-48s %s\n", c.usage(), c.help)
	}
	return nil
}

func quit(context.Context, *Session, io.Writer, []string) error {
	return ErrQuit
}
