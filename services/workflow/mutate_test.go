package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func disconnected() []Node {
	return []Node{
		{ID: "1", Tool: "t", Function: "f"},
		{ID: "2", Tool: "t", Function: "f"},
		{ID: "3", Tool: "t", Function: "f"},
	}
}

func TestNewNodeID(t *testing.T) {
	assert.Equal(t, "1", NewNodeID(nil))
	assert.Equal(t, "4", NewNodeID(disconnected()))
	assert.Equal(t, "1", NewNodeID([]Node{{ID: "alpha"}}))
	assert.Equal(t, "8", NewNodeID([]Node{{ID: "7"}, {ID: "x"}}))
}

func TestAddNode_UniqueAndDisconnected(t *testing.T) {
	var nodes []Node
	for i := 0; i < 20; i++ {
		var n Node
		nodes, n = AddNode(nodes, "slack", "sendMessage", Params{"channel": String("#x")})
		assert.Empty(t, n.Next)
	}

	seen := make(map[string]bool)
	for _, n := range nodes {
		assert.False(t, seen[n.ID], "duplicate id %s", n.ID)
		seen[n.ID] = true
	}
	assert.NoError(t, Validate(nodes))
}

func TestAddNode_CopyOnWrite(t *testing.T) {
	original := chain()
	params := Params{"channel": String("#x")}

	nodes, node := AddNode(original, "slack", "sendMessage", params)

	require.Len(t, original, 3)
	require.Len(t, nodes, 4)
	assert.Equal(t, "4", node.ID)
	assert.Equal(t, node, nodes[3])

	params["channel"] = String("#changed")
	nodes[0].Params["url"] = String("changed")
	assert.Equal(t, String("#x"), nodes[3].Params["channel"])
	assert.Equal(t, String("https://x"), original[0].Params["url"])
}

func TestAddNode_NilParams(t *testing.T) {
	_, node := AddNode(nil, "t", "f", nil)
	assert.NotNil(t, node.Params)
}

func TestDeleteNode_CutsChainAndBlanksRefs(t *testing.T) {
	original := chain()

	nodes := DeleteNode(original, "2")

	require.Len(t, nodes, 2)
	assert.Equal(t, -1, indexOf(nodes, "2"))
	assert.Empty(t, nodes[0].Next, "predecessor is not spliced to 3")
	assert.Equal(t, String(""), nodes[1].Params["body"])
	assert.Equal(t, String("a@b.com"), nodes[1].Params["to"])

	// the input list is untouched
	assert.Equal(t, "2", original[0].Next)
	assert.Equal(t, KindRef, original[2].Params["body"].Kind())
}

func TestDeleteNode_NoDanglingRefsSurvive(t *testing.T) {
	nodes := []Node{
		{ID: "1", Tool: "t", Function: "f", Next: "2"},
		{ID: "2", Tool: "t", Function: "f", Params: Params{"a": Text("$1.output"), "b": Text("$1.other")}, Next: "1"},
		{ID: "3", Tool: "t", Function: "f", Params: Params{"c": Text("$1"), "d": Text("$2.output")}, Next: "1"},
	}

	out := DeleteNode(nodes, "1")

	for _, n := range out {
		assert.NotEqual(t, "1", n.Next)
		for _, r := range n.Params.Refs() {
			assert.NotEqual(t, "1", r.NodeID)
		}
	}
	assert.Equal(t, OutputOf("2"), out[1].Params["d"])
}

func TestDeleteNode_Idempotent(t *testing.T) {
	once := DeleteNode(chain(), "2")
	twice := DeleteNode(once, "2")
	assert.Equal(t, once, twice)

	assert.Equal(t, chain(), DeleteNode(chain(), "missing"))
}

func TestConnectNodes_ReplacesSuccessor(t *testing.T) {
	nodes, err := ConnectNodes(disconnected(), "1", "3")
	require.NoError(t, err)
	nodes, err = ConnectNodes(nodes, "1", "2")
	require.NoError(t, err)

	assert.Equal(t, "2", nodes[0].Next)
	assert.Equal(t, [][2]string{{"1", "2"}}, edgePairs(Layout(nodes)))
}

func TestConnectNodes_AllowsLoops(t *testing.T) {
	nodes, err := ConnectNodes(disconnected(), "2", "2")
	require.NoError(t, err)
	assert.Equal(t, "2", nodes[1].Next)

	nodes, err = ConnectNodes(nodes, "3", "1")
	require.NoError(t, err)
	nodes, err = ConnectNodes(nodes, "1", "3")
	require.NoError(t, err)
	assert.NoError(t, Validate(nodes))
}

func TestConnectNodes_Errors(t *testing.T) {
	original := disconnected()

	_, err := ConnectNodes(original, "9", "1")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	_, err = ConnectNodes(original, "1", "9")
	assert.ErrorIs(t, err, ErrInvalidReference)

	assert.Empty(t, original[0].Next)
}

func TestDisconnectNode(t *testing.T) {
	nodes, err := DisconnectNode(chain(), "1")
	require.NoError(t, err)
	assert.Empty(t, nodes[0].Next)
	assert.Equal(t, "3", nodes[1].Next)

	_, err = DisconnectNode(chain(), "9")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestReconfigureNode(t *testing.T) {
	original := chain()

	nodes, err := ReconfigureNode(original, "2", "twitter", "postTweet", Params{"text": String("hi")})
	require.NoError(t, err)

	assert.Equal(t, Node{ID: "2", Tool: "twitter", Function: "postTweet", Params: Params{"text": String("hi")}, Next: "3"}, nodes[1])
	assert.Equal(t, "chatgpt", original[1].Tool)

	again, err := ReconfigureNode(nodes, "2", "twitter", "postTweet", Params{"text": String("hi")})
	require.NoError(t, err)
	assert.Equal(t, nodes, again)

	_, err = ReconfigureNode(original, "9", "t", "f", nil)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}
