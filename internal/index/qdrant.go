package index

import (
	"context"
	"crypto/tls"
	"fmt"
	"sort"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/epicsum/mediasvc/internal/domain"
)

const defaultVectorDimension = 384

// QdrantConfig holds configuration for the Qdrant-backed index variant.
type QdrantConfig struct {
	Host            string
	Port            int
	Collection      string
	APIKey          string // Qdrant Cloud API Key (enables TLS automatically)
	UseTLS          bool   // Explicitly enable TLS without API Key
	VectorDimension int
}

// apiKeyInterceptor creates a unary interceptor that adds API key to metadata
func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// QdrantIndex is the server-backed Index variant. It satisfies the same
// contract as MemoryIndex; the backend is selected once at startup.
type QdrantIndex struct {
	conn           *grpc.ClientConn
	pointsClient   pb.PointsClient
	collectClient  pb.CollectionsClient
	collectionName string
	dim            int
}

// NewQdrantIndex creates a Qdrant-backed index client.
// Supports both local Qdrant (insecure) and Qdrant Cloud (TLS + API Key).
func NewQdrantIndex(cfg *QdrantConfig) (*QdrantIndex, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	dim := cfg.VectorDimension
	if dim <= 0 {
		dim = defaultVectorDimension
	}

	var opts []grpc.DialOption

	// TLS is enabled if: APIKey is set OR UseTLS is explicitly true
	useTLS := cfg.UseTLS || cfg.APIKey != ""

	if useTLS {
		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
		creds := credentials.NewTLS(tlsConfig)
		opts = append(opts, grpc.WithTransportCredentials(creds))

		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantIndex{
		conn:           conn,
		pointsClient:   pb.NewPointsClient(conn),
		collectClient:  pb.NewCollectionsClient(conn),
		collectionName: cfg.Collection,
		dim:            dim,
	}, nil
}

// Close closes the gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.conn.Close()
}

// Dimension returns the embedding dimension.
func (q *QdrantIndex) Dimension() int {
	return q.dim
}

// EnsureCollection creates the collection if it doesn't exist. Vectors are
// stored under dot-product distance: the embedding producer normalizes them,
// so dot product equals cosine similarity.
func (q *QdrantIndex) EnsureCollection(ctx context.Context) error {
	info, err := q.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: q.collectionName,
	})
	if err == nil {
		if size, ok := collectionVectorSize(info.GetResult()); ok {
			if size != uint64(q.dim) {
				return fmt.Errorf("collection %s has vector size %d, expected %d", q.collectionName, size, q.dim)
			}
		}
		return nil // Collection exists
	}

	_, err = q.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(q.dim),
					Distance: pb.Distance_Dot,
				},
			},
		},
		HnswConfig: &pb.HnswConfigDiff{
			M:                 optionalUint64(16),
			EfConstruct:       optionalUint64(128),
			FullScanThreshold: optionalUint64(10000),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

func optionalUint64(v uint64) *uint64 {
	return &v
}

func collectionVectorSize(info *pb.CollectionInfo) (uint64, bool) {
	if info == nil {
		return 0, false
	}

	config := info.GetConfig()
	if config == nil {
		return 0, false
	}

	params := config.GetParams()
	if params == nil {
		return 0, false
	}

	vectors := params.GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}

	if single := vectors.GetParams(); single != nil {
		if size := single.GetSize(); size > 0 {
			return size, true
		}
	}

	if paramsMap := vectors.GetParamsMap(); paramsMap != nil {
		for _, vectorParams := range paramsMap.GetMap() {
			if vectorParams == nil {
				continue
			}
			if size := vectorParams.GetSize(); size > 0 {
				return size, true
			}
		}
	}

	return 0, false
}

// RecordPayload is the payload stored with each vector point.
type RecordPayload struct {
	RecordID    int    `json:"record_id"`
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Link        string `json:"link"`
}

// DeterministicPointID derives a stable UUID for a catalog record in a given
// collection, so re-running the catalog builder upserts instead of
// duplicating points.
func DeterministicPointID(collection string, recordID int) string {
	name := fmt.Sprintf("%s:%d", collection, recordID)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// Upsert inserts or updates a vector point for a catalog record.
// Used by the catalog builder only; the serving path never writes.
func (q *QdrantIndex) Upsert(ctx context.Context, vector []float32, payload *RecordPayload) error {
	pointID := DeterministicPointID(q.collectionName, payload.RecordID)

	points := []*pb.PointStruct{
		{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{
					Uuid: pointID,
				},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{
						Data: vector,
					},
				},
			},
			Payload: map[string]*pb.Value{
				"record_id":    {Kind: &pb.Value_IntegerValue{IntegerValue: int64(payload.RecordID)}},
				"content_type": {Kind: &pb.Value_StringValue{StringValue: payload.ContentType}},
				"title":        {Kind: &pb.Value_StringValue{StringValue: payload.Title}},
				"link":         {Kind: &pb.Value_StringValue{StringValue: payload.Link}},
			},
		},
	}

	_, err := q.pointsClient.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}

	return nil
}

// Search performs a vector similarity search restricted to one content type.
// Results are re-sorted locally so tied scores break by ascending record
// identifier, matching the in-memory variant.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, ct domain.ContentType, k int) ([]domain.Candidate, error) {
	if k <= 0 || k > MaxK {
		k = MaxK
	}

	req := &pb.SearchPoints{
		CollectionName: q.collectionName,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
		Filter: &pb.Filter{
			Must: []*pb.Condition{
				{
					ConditionOneOf: &pb.Condition_Field{
						Field: &pb.FieldCondition{
							Key: "content_type",
							Match: &pb.Match{
								MatchValue: &pb.Match_Keyword{Keyword: string(ct)},
							},
						},
					},
				},
			},
		},
	}

	resp, err := q.pointsClient.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(resp.Result))
	for _, scored := range resp.Result {
		payload := scored.GetPayload()
		if payload == nil {
			continue
		}
		idValue, ok := payload["record_id"]
		if !ok {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			ID:    int(idValue.GetIntegerValue()),
			Score: float64(scored.Score),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ID < candidates[j].ID
	})

	return candidates, nil
}
