package pointcloud

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/banshee-data/meshcloud/internal/meshcloud"
)

// WritePLY writes c as a binary little-endian PLY with per-vertex colour,
// object_id and semantic_id.
func WritePLY(w io.Writer, c *Cloud) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "ply\n"+
		"format binary_little_endian 1.0\n"+
		"comment generated by meshcloud\n"+
		"element vertex %d\n"+
		"property float x\n"+
		"property float y\n"+
		"property float z\n"+
		"property uchar red\n"+
		"property uchar green\n"+
		"property uchar blue\n"+
		"property int object_id\n"+
		"property int semantic_id\n"+
		"end_header\n", c.Len())
	if err != nil {
		return err
	}

	var rec [4*3 + 3 + 4*2]byte
	le := binary.LittleEndian
	for i, p := range c.Positions {
		le.PutUint32(rec[0:], math.Float32bits(float32(p.X)))
		le.PutUint32(rec[4:], math.Float32bits(float32(p.Y)))
		le.PutUint32(rec[8:], math.Float32bits(float32(p.Z)))
		col := c.Colors[i]
		rec[12], rec[13], rec[14] = col[0], col[1], col[2]
		le.PutUint32(rec[15:], uint32(c.InstanceIDs[i]))
		le.PutUint32(rec[19:], uint32(c.SemanticIDs[i]))
		if _, err := w.Write(rec[:]); err != nil {
			return err
		}
	}
	return nil
}

// WritePCD writes c as a binary PCD v0.7 with a packed rgb field plus
// label and instance fields.
func WritePCD(w io.Writer, c *Cloud) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "# .PCD v0.7 - Point Cloud Data file format\n"+
		"VERSION 0.7\n"+
		"FIELDS x y z rgb label instance\n"+
		"SIZE 4 4 4 4 4 4\n"+
		"TYPE F F F U U U\n"+
		"COUNT 1 1 1 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA binary\n", c.Len(), c.Len())
	if err != nil {
		return err
	}

	var rec [4 * 6]byte
	le := binary.LittleEndian
	for i, p := range c.Positions {
		le.PutUint32(rec[0:], math.Float32bits(float32(p.X)))
		le.PutUint32(rec[4:], math.Float32bits(float32(p.Y)))
		le.PutUint32(rec[8:], math.Float32bits(float32(p.Z)))
		le.PutUint32(rec[12:], PackRGB(c.Colors[i]))
		le.PutUint32(rec[16:], uint32(c.SemanticIDs[i]))
		le.PutUint32(rec[20:], uint32(c.InstanceIDs[i]))
		if _, err := w.Write(rec[:]); err != nil {
			return err
		}
	}
	return nil
}

// PackRGB packs a colour the way PCL stores its rgb field.
func PackRGB(c meshcloud.Color) uint32 {
	return uint32(c[0])<<16 | uint32(c[1])<<8 | uint32(c[2])
}
