package world

// Movement costs on improved tiles. These replace the terrain cost outright.
const (
	RoadCost     = 1.0 / 2
	FastRoadCost = 1.0 / 3
	RailroadCost = 1.0 / 10
)

// Capabilities are the researched abilities that change movement.
type Capabilities struct {
	FastMovement bool // Roads cost 1/3 instead of 1/2
}

// StepCost returns the cost of moving from one tile onto an adjacent one.
// Cost belongs to the destination: from only matters for shared infrastructure.
func StepCost(from, to *Tile, caps Capabilities) float64 {
	if from.Infrastructure == InfraRailroad && to.Infrastructure == InfraRailroad {
		return RailroadCost
	}
	if from.Infrastructure >= InfraRoad && to.Infrastructure >= InfraRoad {
		if caps.FastMovement {
			return FastRoadCost
		}
		return RoadCost
	}
	return to.MovementCost()
}
