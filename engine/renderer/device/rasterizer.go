package device

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ssr/engine/scene"
	"github.com/chewxy/math32"
)

// screenVertex is a clipped vertex after the perspective divide.
type screenVertex struct {
	x, y, z  float32 // window x, y in texels (bottom-left origin), device depth
	invW     float32
	varyings [shader.MaxVaryings]float32 // pre-multiplied by invW
}

// screenTriangle is one triangle ready for rasterization.
type screenTriangle struct {
	v       [3]screenVertex
	area    float32
	front   bool
	prog    shader.SurfaceProgram
	dc      *shader.DrawContext
	targets int
}

// drawItem is one visible node with its resolved program.
type drawItem struct {
	node scene.Node
	prog shader.SurfaceProgram
	dc   shader.DrawContext
	tris []screenTriangle
}

// assemble runs the vertex stage for every visible node and returns the clipped, culled
// triangles in scene order. Vertex work is spread across the pool one node per task.
func (d *softwareDevice) assemble(out *softwareTarget, sc scene.Scene, rc *RenderContext) ([]screenTriangle, error) {
	w, h := out.desc.Width, out.desc.Height
	frustum := common.ExtractFrustumFromMatrix(rc.Camera.ViewProjection())

	var items []*drawItem
	for _, n := range sc.Nodes() {
		if !n.Visible() {
			continue
		}
		mesh := n.Mesh()
		world := n.World()
		if !mesh.Skinned() && mesh.BoundingRadius() > 0 {
			center := common.Vec3{world[12], world[13], world[14]}
			if !frustum.IntersectsSphere(center, mesh.BoundingRadius()*maxScale(world)) {
				continue
			}
		}
		prog, err := rc.ResolveProgram(sc, n)
		if err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", n.ID(), n.Name(), err)
		}
		items = append(items, &drawItem{node: n, prog: prog, dc: NewDrawContext(rc, n, w, h)})
	}

	var wg sync.WaitGroup
	for i, it := range items {
		wg.Add(1)
		d.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				it.tris = shadeVertices(it, w, h)
				return nil, nil
			},
		})
	}
	wg.Wait()

	var tris []screenTriangle
	for _, it := range items {
		tris = append(tris, it.tris...)
	}
	return tris, nil
}

// maxScale returns the largest axis scale of a world matrix.
func maxScale(m [16]float32) float32 {
	sx := common.Vec3{m[0], m[1], m[2]}.Length()
	sy := common.Vec3{m[4], m[5], m[6]}.Length()
	sz := common.Vec3{m[8], m[9], m[10]}.Length()
	return max(sx, sy, sz)
}

// shadeVertices runs the program's vertex stage over the node's mesh and builds screen triangles.
func shadeVertices(it *drawItem, width, height int) []screenTriangle {
	mesh := it.node.Mesh()
	vertices := mesh.Vertices()
	indices := mesh.Indices()
	outs := make([]shader.VertexOutput, len(vertices))
	for i := range vertices {
		it.prog.Vertex(&it.dc, &vertices[i], &outs[i])
	}

	targets := it.prog.Targets()
	cull := !it.prog.DoubleSided()
	tris := make([]screenTriangle, 0, len(indices)/3)
	var poly [9]shader.VertexOutput
	for i := 0; i+2 < len(indices); i += 3 {
		n := clipNear([3]*shader.VertexOutput{&outs[indices[i]], &outs[indices[i+1]], &outs[indices[i+2]]}, poly[:])
		for k := 1; k+1 < n; k++ {
			t := screenTriangle{prog: it.prog, dc: &it.dc, targets: targets}
			t.v[0] = toScreen(&poly[0], width, height)
			t.v[1] = toScreen(&poly[k], width, height)
			t.v[2] = toScreen(&poly[k+1], width, height)
			t.area = edge(t.v[0].x, t.v[0].y, t.v[1].x, t.v[1].y, t.v[2].x, t.v[2].y)
			if math32.Abs(t.area) < 1e-12 {
				continue
			}
			t.front = t.area > 0
			if cull && !t.front {
				continue
			}
			tris = append(tris, t)
		}
	}
	return tris
}

// clipNear clips a triangle against the z >= 0 clip plane, writing the polygon into out.
// Returns the vertex count, zero when fully clipped.
func clipNear(tri [3]*shader.VertexOutput, out []shader.VertexOutput) int {
	n := 0
	for i := range 3 {
		a, b := tri[i], tri[(i+1)%3]
		da, db := a.Position[2], b.Position[2]
		if da >= 0 {
			out[n] = *a
			n++
		}
		if (da >= 0) != (db >= 0) {
			t := da / (da - db)
			var v shader.VertexOutput
			v.Position = a.Position.Lerp(b.Position, t)
			for k := range shader.MaxVaryings {
				v.Varyings[k] = common.Mix(a.Varyings[k], b.Varyings[k], t)
			}
			out[n] = v
			n++
		}
	}
	return n
}

// toScreen applies the perspective divide and viewport transform.
func toScreen(v *shader.VertexOutput, width, height int) screenVertex {
	invW := 1 / v.Position[3]
	s := screenVertex{
		x:    (v.Position[0]*invW*0.5 + 0.5) * float32(width),
		y:    (v.Position[1]*invW*0.5 + 0.5) * float32(height),
		z:    v.Position[2] * invW,
		invW: invW,
	}
	for k := range shader.MaxVaryings {
		s.varyings[k] = v.Varyings[k] * invW
	}
	return s
}

// edge is the signed doubled area of (a, b, c); positive when counter-clockwise.
func edge(ax, ay, bx, by, cx, cy float32) float32 {
	return (bx-ax)*(cy-ay) - (by-ay)*(cx-ax)
}

// rasterize draws the rows [y0, y1) of t into out, testing and writing depth.
func rasterize(out *softwareTarget, depth []float32, t *screenTriangle, y0, y1 int) {
	w, h := out.desc.Width, out.desc.Height
	minX := max(int(math32.Floor(min(t.v[0].x, t.v[1].x, t.v[2].x))), 0)
	maxX := min(int(math32.Ceil(max(t.v[0].x, t.v[1].x, t.v[2].x))), w-1)
	minY := max(int(math32.Floor(min(t.v[0].y, t.v[1].y, t.v[2].y))), y0, 0)
	maxY := min(int(math32.Ceil(max(t.v[0].y, t.v[1].y, t.v[2].y))), y1-1, h-1)
	if minX > maxX || minY > maxY {
		return
	}

	writes := min(t.targets, len(out.pixels))
	slots := make([]common.Vec4, max(t.targets, 1))
	var frag shader.Fragment
	frag.FrontFacing = t.front
	inv := 1 / t.area
	a, b, c := &t.v[0], &t.v[1], &t.v[2]

	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			l0 := edge(b.x, b.y, c.x, c.y, px, py) * inv
			l1 := edge(c.x, c.y, a.x, a.y, px, py) * inv
			l2 := edge(a.x, a.y, b.x, b.y, px, py) * inv
			if l0 < 0 || l1 < 0 || l2 < 0 {
				continue
			}
			z := l0*a.z + l1*b.z + l2*c.z
			i := y*w + x
			if z < 0 || z > 1 || z >= depth[i] {
				continue
			}
			invW := l0*a.invW + l1*b.invW + l2*c.invW
			for k := range shader.MaxVaryings {
				frag.Varyings[k] = (l0*a.varyings[k] + l1*b.varyings[k] + l2*c.varyings[k]) / invW
			}
			frag.FragCoord = common.Vec4{px, py, z, invW}
			if !t.prog.Fragment(t.dc, &frag, slots) {
				continue
			}
			depth[i] = z
			for s := 0; s < writes; s++ {
				out.store(s, i, slots[s])
			}
		}
	}
}
