// Command cloud-inspect prints the contents of a point cloud container.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/banshee-data/meshcloud/internal/meshcloud"
	"github.com/banshee-data/meshcloud/internal/meshcloud/storage/sqlite"
)

func main() {
	dbPath := flag.String("db", "", "path to a container written by meshcloud")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("-db is required")
	}
	contents, err := sqlite.ReadDataset(*dbPath)
	if err != nil {
		log.Fatalf("read %s: %v", *dbPath, err)
	}
	if err := report(os.Stdout, contents); err != nil {
		log.Fatalf("%s: %v", *dbPath, err)
	}
}

// report prints a summary of c and checks that its arrays are aligned.
func report(w io.Writer, c *sqlite.Contents) error {
	ds := c.Dataset
	fmt.Fprintf(w, "dataset    %s\n", ds.DatasetID)
	fmt.Fprintf(w, "scene      %s (house %s, level %d)\n", ds.SceneID, ds.HouseID, ds.Level)
	fmt.Fprintf(w, "resolution %g\n", ds.Resolution)
	fmt.Fprintf(w, "faces      %d total, %d retained, %d degenerate\n", ds.Faces, ds.RetainedFaces, ds.DegenerateFaces)
	fmt.Fprintf(w, "written    %s by %s\n", time.Unix(0, ds.CreatedAt).UTC().Format(time.RFC3339), ds.ToolVersion)
	fmt.Fprintf(w, "points     %d\n", ds.Points)

	names := make([]string, 0, len(c.Arrays))
	for name := range c.Arrays {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a := c.Arrays[name]
		fmt.Fprintf(w, "  %-9s %s [%d x %d]\n", a.Name, a.DType, a.Rows, a.Cols)
	}

	if err := c.Cloud.Validate(); err != nil {
		return err
	}

	categories := make(map[meshcloud.SemanticID]string)
	for _, l := range c.Labels {
		categories[l.Semantic] = l.Category
	}
	s := c.Cloud.Summarize()
	fmt.Fprintf(w, "instances  %d\n", s.Instances)
	if s.Points > 0 {
		fmt.Fprintf(w, "bounds     (%.3f, %.3f, %.3f) - (%.3f, %.3f, %.3f)\n",
			s.Min.X, s.Min.Y, s.Min.Z, s.Max.X, s.Max.Y, s.Max.Z)
	}
	for _, cc := range s.Classes {
		name, ok := categories[cc.Semantic]
		if !ok {
			name = fmt.Sprintf("class_%d", cc.Semantic)
		}
		fmt.Fprintf(w, "  %3d %-20s %9d\n", cc.Semantic, name, cc.Points)
	}
	return nil
}
