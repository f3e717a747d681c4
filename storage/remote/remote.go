/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Fri Mar 15 15:45:20 2019 mstenber
 * Last modified: Fri Mar 15 16:31:14 2019 mstenber
 * Edit time:     28 min
 *
 */

// remote backend reads the image from a readfs server.
package remote

import (
	"io"
	"net"
	"net/rpc"

	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/server"
	"github.com/fingon/go-readfs/storage"
	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"
)

type remoteBackend struct {
	client *rpc.Client
	size   uint32
}

var _ storage.Backend = &remoteBackend{}

func NewRemoteBackend(config storage.BackendConfiguration) (storage.Backend, error) {
	family := config.Family
	if family == "" {
		family = "tcp"
	}
	mlog.Printf2("storage/remote/remote", "NewRemoteBackend %s %s", family, config.Address)
	conn, err := net.Dial(family, config.Address)
	if err != nil {
		return nil, errors.Wrap(err, "net.Dial")
	}
	client := rpc.NewClientWithCodec(codec.GoRpc.ClientCodec(conn, &server.Handle))
	var reply server.InfoReply
	err = client.Call(server.ServiceName+".Info", &server.InfoArgs{}, &reply)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "Info")
	}
	return &remoteBackend{client: client, size: reply.Size}, nil
}

func (self *remoteBackend) Close() error {
	return self.client.Close()
}

func (self *remoteBackend) ReadAt(p []byte, addr uint32) (n int, err error) {
	for n < len(p) {
		size := len(p) - n
		if size > server.MaxReadSize {
			size = server.MaxReadSize
		}
		args := server.ReadArgs{Addr: addr + uint32(n), Size: uint32(size)}
		var reply server.ReadReply
		err = self.client.Call(server.ServiceName+".ReadAt", &args, &reply)
		if err != nil {
			err = errors.Wrapf(err, "ReadAt %x", args.Addr)
			return
		}
		if reply.OutOfBounds {
			err = errors.Wrapf(storage.ErrOutOfBounds, "remote %x", args.Addr)
			return
		}
		n += copy(p[n:], reply.Data)
		if reply.EOF {
			err = io.EOF
			return
		}
		if len(reply.Data) != size {
			err = errors.Errorf("short remote read %d < %d", len(reply.Data), size)
			return
		}
	}
	return
}

func (self *remoteBackend) Size() uint32 {
	return self.size
}
