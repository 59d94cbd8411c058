// Garnet CLI - loads a program image and runs it
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/chazu/garnet/manifest"
	"github.com/chazu/garnet/vm"
	"github.com/chazu/garnet/vm/image"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// options holds the parsed command line.
type options struct {
	dir     string
	verbose int
	disasm  bool
	store   string
	put     string
	list    bool
	args    []string
}

func main() {
	var opts options
	flag.IntVar(&opts.verbose, "v", -1, "Log verbosity (overrides garnet.toml; 0 = errors only)")
	flag.BoolVar(&opts.disasm, "d", false, "Print the disassembly of every method instead of running")
	flag.StringVar(&opts.dir, "C", ".", "Directory to search for garnet.toml")
	flag.StringVar(&opts.store, "store", "", "SQLite image store; the image argument names an entry in it")
	flag.StringVar(&opts.put, "put", "", "Copy the image file argument into the store under this name")
	flag.BoolVar(&opts.list, "list", false, "List the images in the store")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: garnet [options] [image]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a garnet program image. Without an image argument the\n")
		fmt.Fprintf(os.Stderr, "image named in garnet.toml is used.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  garnet app.gimg                          # Run app.gimg\n")
		fmt.Fprintf(os.Stderr, "  garnet -d app.gimg                       # Disassemble app.gimg\n")
		fmt.Fprintf(os.Stderr, "  garnet -C ./proj -v 4                    # Run the project image with debug logging\n")
		fmt.Fprintf(os.Stderr, "  garnet -store img.db -put app app.gimg   # Save app.gimg as 'app'\n")
		fmt.Fprintf(os.Stderr, "  garnet -store img.db app                 # Run the stored image 'app'\n")
	}
	flag.Parse()
	opts.args = flag.Args()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	m, err := manifest.FindAndLoad(opts.dir)
	if err != nil {
		return err
	}
	if m == nil {
		m = manifest.Default(opts.dir)
	}

	verbosity := m.Log.Verbosity
	if opts.verbose >= 0 {
		verbosity = opts.verbose
	}
	commonlog.Configure(verbosity, m.LogPath())
	log := commonlog.GetLogger("garnet.cli")

	storePath := m.StorePath()
	if opts.store != "" {
		storePath = opts.store
	}
	var store *image.Store
	if storePath != "" {
		if store, err = image.OpenStore(storePath); err != nil {
			return err
		}
		defer store.Close()
	}
	if (opts.put != "" || opts.list) && store == nil {
		return fmt.Errorf("-put and -list need an image store")
	}

	if opts.list {
		entries, err := store.List()
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%-24s %8d  %s\n", e.Name, e.Size, e.Updated.Format("2006-01-02 15:04:05"))
		}
		return nil
	}

	name := m.Project.Image
	if store == nil {
		name = m.ImagePath()
	}
	switch len(opts.args) {
	case 0:
		if name == "" {
			return fmt.Errorf("no image given and none configured in %s", manifest.FileName)
		}
	case 1:
		name = opts.args[0]
	default:
		return fmt.Errorf("expected at most one image, got %d", len(opts.args))
	}

	var prog *image.Program
	if store != nil && opts.put == "" {
		prog, err = store.Get(name)
	} else {
		prog, err = image.ReadFile(name)
	}
	if err != nil {
		return err
	}
	log.Infof("loaded %s: %d methods, %d identifiers", name, len(prog.Methods), len(prog.Idents))

	if opts.put != "" {
		if err := store.Put(opts.put, prog); err != nil {
			return err
		}
		log.Infof("stored %s as %s", name, opts.put)
		return nil
	}

	g := vm.NewGlobals()
	entry, err := image.Load(g, prog)
	if err != nil {
		return err
	}

	if opts.disasm {
		idents := image.Names(prog.Idents)
		for i, meth := range prog.Methods {
			marker := ""
			if i == prog.Entry {
				marker = " (entry)"
			}
			fmt.Printf("== %d %s%s\n", i, meth.Name, marker)
			fmt.Println(vm.Disassemble(meth.Code, idents))
		}
		return nil
	}

	log.Infof("runtime %s: running %s", g.ID, prog.Methods[prog.Entry].Name)
	machine := vm.New(g, m.VMConfig())
	result, err := machine.Run(entry)
	if err != nil {
		return err
	}
	log.Debugf("result: %s", g.Inspect(result))
	if result != vm.Nil {
		fmt.Println(g.ToS(result))
	}
	return nil
}
