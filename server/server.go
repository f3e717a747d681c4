/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Jan 16 14:38:35 2018 mstenber
 * Last modified: Fri Mar 15 15:42:10 2019 mstenber
 * Edit time:     171 min
 *
 */

// server makes a storage.Backend available over the network. The
// protocol is net/rpc with msgpack encoding; storage/remote is the
// matching client.
package server

import (
	"io"
	"net"
	"net/rpc"

	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/storage"
	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"
)

// ServiceName is the rpc service the image is registered as.
const ServiceName = "Image"

// MaxReadSize is the largest ReadAt request served in one call.
const MaxReadSize = 1 << 20

type ReadArgs struct {
	Addr uint32
	Size uint32
}

type ReadReply struct {
	Data []byte

	// EOF is set if the image ended before Size bytes
	EOF bool

	// OutOfBounds is set if Addr is past the end of the image
	OutOfBounds bool
}

type InfoArgs struct{}

type InfoReply struct {
	Size uint32
}

// Handle is the msgpack handle used on both ends.
var Handle codec.MsgpackHandle

type imageService struct {
	backend storage.Backend
}

func (self *imageService) ReadAt(args *ReadArgs, reply *ReadReply) error {
	mlog.Printf2("server/server", "s.ReadAt %x %d", args.Addr, args.Size)
	if args.Size > MaxReadSize {
		return errors.Errorf("too large read: %d > %d", args.Size, MaxReadSize)
	}
	buf := make([]byte, args.Size)
	n, err := self.backend.ReadAt(buf, args.Addr)
	switch {
	case err == nil:
	case errors.Cause(err) == storage.ErrOutOfBounds:
		reply.OutOfBounds = true
		return nil
	case errors.Cause(err) == io.EOF:
		reply.EOF = true
	default:
		return err
	}
	reply.Data = buf[:n]
	return nil
}

func (self *imageService) Info(args *InfoArgs, reply *InfoReply) error {
	reply.Size = self.backend.Size()
	return nil
}

type Server struct {
	Family, Address string
	Backend         storage.Backend

	listener net.Listener
	rpc      *rpc.Server
	done     chan struct{}
}

func (self Server) Init() (*Server, error) {
	if self.Family == "" {
		self.Family = "tcp"
	}
	self.rpc = rpc.NewServer()
	err := self.rpc.RegisterName(ServiceName, &imageService{backend: self.Backend})
	if err != nil {
		return nil, errors.Wrap(err, "rpc.RegisterName")
	}
	lis, err := net.Listen(self.Family, self.Address)
	if err != nil {
		return nil, errors.Wrap(err, "net.Listen")
	}
	mlog.Printf("Server at %s %s", self.Family, lis.Addr())
	self.listener = lis
	self.done = make(chan struct{})
	go self.serve()
	return &self, nil
}

func (self *Server) serve() {
	defer close(self.done)
	for {
		conn, err := self.listener.Accept()
		if err != nil {
			mlog.Printf2("server/server", "s.serve done: %v", err)
			return
		}
		mlog.Printf2("server/server", "s.serve connection from %v", conn.RemoteAddr())
		go self.rpc.ServeCodec(codec.GoRpc.ServerCodec(conn, &Handle))
	}
}

// Addr returns the address the server actually listens at.
func (self *Server) Addr() net.Addr {
	return self.listener.Addr()
}

// Close stops accepting new connections. Established ones are
// served until clients close them.
func (self *Server) Close() error {
	err := self.listener.Close()
	<-self.done
	return err
}
