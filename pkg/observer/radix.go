package observer

import (
    "bufio"
    "context"
    "fmt"
    "strconv"
    "strings"
    "sync"

    "github.com/mediocregopher/radix/v4"

    "github.com/clusterlab/sentinel-harness/pkg/topology"
)

// RadixClient implements RoleClient over the Redis wire protocol using the
// radix client. Connections are cached per node and re-dialed on error so
// that a link severed mid-scenario does not poison later ticks.
type RadixClient struct {
    masterName string
    dialer     radix.Dialer

    mu    sync.Mutex
    conns map[string]radix.Conn
}

// NewRadixClient constructs a client for the named monitored master.
func NewRadixClient(masterName string) *RadixClient {
    return &RadixClient{
        masterName: masterName,
        conns:      make(map[string]radix.Conn),
    }
}

func (c *RadixClient) conn(ctx context.Context, addr string) (radix.Conn, error) {
    c.mu.Lock()
    conn, ok := c.conns[addr]
    c.mu.Unlock()
    if ok {
        return conn, nil
    }
    conn, err := c.dialer.Dial(ctx, "tcp", addr)
    if err != nil {
        return nil, err
    }
    c.mu.Lock()
    c.conns[addr] = conn
    c.mu.Unlock()
    return conn, nil
}

func (c *RadixClient) drop(addr string) {
    c.mu.Lock()
    if conn, ok := c.conns[addr]; ok {
        delete(c.conns, addr)
        _ = conn.Close()
    }
    c.mu.Unlock()
}

// Ping checks basic liveness of a node.
func (c *RadixClient) Ping(ctx context.Context, node topology.Node) error {
    conn, err := c.conn(ctx, node.Addr)
    if err != nil {
        return err
    }
    if err := conn.Do(ctx, radix.Cmd(nil, "PING")); err != nil {
        c.drop(node.Addr)
        return err
    }
    return nil
}

// GetRole queries one node's role and epochs. Role comes from INFO (works
// on data nodes and sentinels alike); epochs come from SENTINEL MASTER on
// sentinel nodes. Data nodes do not expose a config epoch and report zero.
func (c *RadixClient) GetRole(ctx context.Context, node topology.Node) (RoleInfo, error) {
    conn, err := c.conn(ctx, node.Addr)
    if err != nil {
        return RoleInfo{}, err
    }
    var raw string
    if err := conn.Do(ctx, radix.Cmd(&raw, "INFO")); err != nil {
        c.drop(node.Addr)
        return RoleInfo{}, err
    }
    info := parseInfo(raw)
    if info["redis_mode"] == "sentinel" {
        return c.sentinelRole(ctx, conn, node)
    }
    switch info["role"] {
    case "master":
        return RoleInfo{Role: topology.RolePrimary}, nil
    case "slave":
        return RoleInfo{Role: topology.RoleReplica}, nil
    }
    return RoleInfo{}, fmt.Errorf("radix: node %s reports no role", node.Name)
}

func (c *RadixClient) sentinelRole(ctx context.Context, conn radix.Conn, node topology.Node) (RoleInfo, error) {
    var fields map[string]string
    if err := conn.Do(ctx, radix.Cmd(&fields, "SENTINEL", "MASTER", c.masterName)); err != nil {
        c.drop(node.Addr)
        return RoleInfo{}, err
    }
    ri := RoleInfo{Role: topology.RoleSentinel}
    if v, err := strconv.ParseUint(fields["config-epoch"], 10, 64); err == nil {
        ri.ConfigEpoch = v
    }
    if v, err := strconv.ParseUint(fields["leader-epoch"], 10, 64); err == nil {
        ri.LeaderEpoch = v
    } else {
        ri.LeaderEpoch = ri.ConfigEpoch
    }
    return ri, nil
}

// Close releases all cached connections.
func (c *RadixClient) Close() error {
    c.mu.Lock()
    defer c.mu.Unlock()
    for addr, conn := range c.conns {
        _ = conn.Close()
        delete(c.conns, addr)
    }
    return nil
}

// parseInfo splits an INFO reply into key/value pairs, skipping section
// headers and blank lines.
func parseInfo(raw string) map[string]string {
    out := make(map[string]string)
    sc := bufio.NewScanner(strings.NewReader(raw))
    for sc.Scan() {
        line := strings.TrimSpace(sc.Text())
        if line == "" || strings.HasPrefix(line, "#") {
            continue
        }
        k, v, ok := strings.Cut(line, ":")
        if !ok {
            continue
        }
        out[k] = v
    }
    return out
}

var _ RoleClient = (*RadixClient)(nil)
