package main

import (
	"fmt"

	"github.com/akmonengine/collide"
	"github.com/akmonengine/collide/quickhull"
	"github.com/akmonengine/collide/shape"
	"github.com/go-gl/mathgl/mgl64"
)

func transformAt(x, y, z float64) shape.Transform {
	return shape.Transform{Position: mgl64.Vec3{x, y, z}, Rotation: mgl64.QuatIdent()}
}

func main() {
	world := collide.NewWorld()
	world.Workers = 4

	world.Events.Subscribe(collide.CONTACT_ENTER, func(e collide.Event) {
		contact := e.(collide.ContactEnterEvent)
		fmt.Printf("contact enter: %v <-> %v\n", contact.A.UserData, contact.B.UserData)
	})
	world.Events.Subscribe(collide.CONTACT_EXIT, func(e collide.Event) {
		contact := e.(collide.ContactExitEvent)
		fmt.Printf("contact exit:  %v <-> %v\n", contact.A.UserData, contact.B.UserData)
	})

	// A wide ground slab built from its corner cloud.
	ground, err := quickhull.Build([]mgl64.Vec3{
		{-10, -1, -10}, {10, -1, -10}, {10, -1, 10}, {-10, -1, 10},
		{-10, 1, -10}, {10, 1, -10}, {10, 1, 10}, {-10, 1, 10},
	})
	if err != nil {
		panic(err)
	}
	world.AddProxy(ground, transformAt(0, 0, 0), "ground")

	ball := world.AddProxy(&shape.Sphere{Radius: 0.5}, transformAt(0, 5, 0), "ball")
	world.AddProxy(&shape.Capsule{
		Segment: shape.Segment{A: mgl64.Vec3{-1, 0, 0}, B: mgl64.Vec3{1, 0, 0}},
		Radius:  0.5,
	}, transformAt(4, 1.4, 0), "capsule")

	// Drop the ball onto the slab.
	for y := ball.Transform.Position.Y(); y > 1.0; y -= 0.5 {
		world.MoveProxy(ball, transformAt(0, y, 0))
		world.Step()
	}

	for _, pair := range world.Pairs() {
		if pair.Manifold.Count == 0 {
			continue
		}
		fmt.Printf("pair %v <-> %v: %d contact point(s)\n",
			pair.A.UserData, pair.B.UserData, pair.Manifold.Count)
		for i := 0; i < pair.Manifold.Count; i++ {
			point := pair.Manifold.Points[i]
			world1 := pair.A.Transform.Apply(point.LocalPoint1)
			normal := pair.A.Transform.RotateDir(point.LocalNormal1)
			fmt.Printf("  point %d: position=%v normal=%v\n", i, world1, normal)
		}
	}
}
