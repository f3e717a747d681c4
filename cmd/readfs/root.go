/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 20 12:01:55 2019 mstenber
 * Last modified: Wed Mar 20 14:12:09 2019 mstenber
 * Edit time:     63 min
 *
 */

package main

import (
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/docker/go-units"
	"github.com/fingon/go-readfs/fs"
	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/sched"
	"github.com/fingon/go-readfs/storage"
	"github.com/fingon/go-readfs/storage/factory"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "readfs",
	Short: "Read-only file system images on raw storage",
	Long: `readfs manages images of a flat read-only file system: a header
offset word, a descriptor table and file data. Images can be built
from a directory, imported into a storage backend, listed, read,
served to remote clients and mounted with FUSE.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if p := viper.GetString("mlog"); p != "" {
			mlog.SetPattern(p)
		}
	},
}

func init() {
	log.SetFlags(0)
	cobra.OnInitialize(initConfig)

	addBackendFlags(rootCmd.PersistentFlags())
}

// addBackendFlags registers the flags that select and configure the
// storage backend; they are all bound to viper keys of the same name.
func addBackendFlags(pf *pflag.FlagSet) {
	pf.StringVar(&configFile, "config", "", "Config file (default $HOME/.readfs.yaml)")
	pf.String("backend", "file",
		fmt.Sprintf("Backend to use (possible: %v)", factory.List()))
	pf.String("dir", "", "Storage directory (bolt, badger)")
	pf.String("path", "", "Image file path (file, mmap)")
	pf.String("address", "", "Server address (remote)")
	pf.String("family", "tcp", "Server address family (remote)")
	pf.String("page-size", "4k", "Page size of paged backends")
	pf.String("password", "", "Password for encrypting pages (paged backends)")
	pf.String("salt", "", "Salt for the password")
	pf.String("compression", "", "Page compression: plain, snappy, lz4 or zstd (paged backends)")
	pf.String("max-table-size", units.BytesSize(fs.DefaultMaxTableSize), "Largest descriptor table accepted at mount")
	pf.String("mlog", "", "mlog file pattern to enable debug logging for")
	if err := viper.BindPFlags(pf); err != nil {
		log.Panic(err)
	}
}

func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".readfs")
	}
	viper.SetEnvPrefix("readfs")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		mlog.Printf2("cmd/readfs/root", "Using config file %s", viper.ConfigFileUsed())
	} else if configFile != "" {
		log.Fatalf("Unable to read %s: %v", configFile, err)
	}
}

func backendConfiguration() (config factory.Configuration, err error) {
	pageSize, err := units.RAMInBytes(viper.GetString("page-size"))
	if err != nil {
		err = errors.Wrap(err, "page-size")
		return
	}
	config = factory.Configuration{
		BackendConfiguration: storage.BackendConfiguration{
			Directory: viper.GetString("dir"),
			Path:      viper.GetString("path"),
			Address:   viper.GetString("address"),
			Family:    viper.GetString("family"),
			PageSize:  int(pageSize),
		},
		BackendName: viper.GetString("backend"),
		Password:    viper.GetString("password"),
		Salt:        viper.GetString("salt"),
		Compression: viper.GetString("compression"),
	}
	return
}

func openBackend() (storage.Backend, error) {
	config, err := backendConfiguration()
	if err != nil {
		return nil, err
	}
	return factory.NewWithConfig(config)
}

// mounted is a file system mounted on top of the configured backend.
type mounted struct {
	fs     *fs.Fs
	sched  *sched.Scheduler
	device *storage.Device
}

func mountBackend() (*mounted, error) {
	be, err := openBackend()
	if err != nil {
		return nil, err
	}
	maxTableSize, err := units.RAMInBytes(viper.GetString("max-table-size"))
	if err != nil || maxTableSize <= 0 || maxTableSize > math.MaxUint32 {
		return nil, multierr.Append(errors.Errorf("invalid max-table-size %q", viper.GetString("max-table-size")), be.Close())
	}
	s := &sched.Scheduler{}
	d := storage.Device{Backend: be, Scheduler: s}.Init()
	f, err := fs.Mount(fs.Config{Storage: d, Scheduler: s,
		MaxTableSize: uint32(maxTableSize)})
	if err != nil {
		return nil, multierr.Append(err, d.Close())
	}
	mlog.Printf2("cmd/readfs/root", "mounted %s (%s)", viper.GetString("backend"),
		units.HumanSize(float64(d.Size())))
	return &mounted{fs: f, sched: s, device: d}, nil
}

func (self *mounted) Close() error {
	return multierr.Combine(self.fs.Unmount(), self.device.Close())
}
