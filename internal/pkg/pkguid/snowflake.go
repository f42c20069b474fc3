package pkguid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// epochMillis is 2026-01-01T00:00:00Z, the start of document numbering.
const epochMillis = 1767225600000

// maxNode is the largest node number that fits the 10 node bits.
const maxNode = 1<<10 - 1

var setEpoch sync.Once

// Snowflake numbers uploaded documents. IDs from distinct nodes never
// collide, so replicas sharing an export target need distinct nodes.
type Snowflake struct {
	node *snowflake.Node
}

func generateRandomNodeID() (int64, error) {
	var nodeID int64
	if err := binary.Read(rand.Reader, binary.BigEndian, &nodeID); err != nil {
		return 0, err
	}
	return nodeID & maxNode, nil
}

// NewSnowflake returns a generator for the given node. A negative node picks
// one at random.
func NewSnowflake(node int64) (*Snowflake, error) {
	if node > maxNode {
		return nil, fmt.Errorf("snowflake node %d out of range 0..%d", node, maxNode)
	}
	if node < 0 {
		n, err := generateRandomNodeID()
		if err != nil {
			return nil, fmt.Errorf("random snowflake node: %w", err)
		}
		node = n
	}

	// the library reads Epoch when a node is created
	setEpoch.Do(func() { snowflake.Epoch = epochMillis })

	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, err
	}
	return &Snowflake{node: n}, nil
}

// Generate returns a new document number.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}

// Node reports which node produced id.
func (s *Snowflake) Node(id int64) int64 {
	return id >> snowflake.StepBits & maxNode
}
