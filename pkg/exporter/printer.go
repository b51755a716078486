package exporter

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"ocflprobe/pkg/core"

	"github.com/dustin/go-humanize"
)

// PrintVersion 打印版本元数据以及它的文件清单 (类似 git show --stat)
func PrintVersion(v *core.Version, s *core.State, w io.Writer) error {
	fmt.Fprintf(w, "Object:  %s\n", v.ObjectID)
	fmt.Fprintf(w, "Version: %s\n", v.Num())
	fmt.Fprintf(w, "Hash:    %s\n", v.ID())
	if p := v.Parent(); !p.IsZero() {
		fmt.Fprintf(w, "Parent:  %s\n", p)
	}
	fmt.Fprintf(w, "User:    %s <%s>\n", v.UserName, v.UserAddress)
	fmt.Fprintf(w, "Created: %s (%s)\n",
		time.Unix(v.Created, 0).Format(time.RFC3339), humanize.Time(time.Unix(v.Created, 0)))
	fmt.Fprintf(w, "\n    %s\n\n", v.Message)

	return PrintState(s, w)
}

// PrintState 模拟 ls -l 风格的文件清单
func PrintState(s *core.State, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "HASH\tSIZE\tPATH\n")
	for _, entry := range s.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", entry.Node.Hash.Short(), humanize.IBytes(uint64(entry.Size)), entry.Path)
	}
	fmt.Fprintf(tw, "\t%s\ttotal (%d files)\n", humanize.IBytes(uint64(s.TotalSize())), len(s.Entries))
	return tw.Flush()
}

// PrintFileNode 打印大文件索引
func PrintFileNode(f *core.FileNode, w io.Writer) error {
	fmt.Fprintf(w, "Type:      FileNode (ADL)\n")
	fmt.Fprintf(w, "TotalSize: %s (%s bytes)\n", humanize.IBytes(uint64(f.TotalSize)), humanize.Comma(f.TotalSize))
	fmt.Fprintf(w, "Chunks:    %d\n", len(f.Chunks))
	return nil
}
