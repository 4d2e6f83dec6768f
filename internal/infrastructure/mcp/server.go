package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/prscore/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/prscore/pkg/application"
	"github.com/felixgeelhaar/prscore/pkg/client"
	"github.com/felixgeelhaar/prscore/pkg/domain/analysis"
	"github.com/felixgeelhaar/prscore/pkg/domain/prurl"
	"github.com/felixgeelhaar/prscore/pkg/domain/rubric"
	"github.com/felixgeelhaar/prscore/pkg/report"
	"github.com/felixgeelhaar/prscore/pkg/storage"
)

var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

type Server struct {
	mcpServer *mcp.Server
	services  *wiring.AppServices
}

// mcpErr returns the user-facing message only.
func mcpErr(friendly string) error {
	return fmt.Errorf("%s", friendly)
}

func NewServer(root string, opts wiring.Options) (*Server, error) {
	services, err := wiring.BuildAppServices(root, opts)
	if err != nil {
		return nil, fmt.Errorf("build services: %w", err)
	}

	info := mcp.ServerInfo{
		Name:    "prscore",
		Version: Version,
	}

	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("prscore MCP Server"),
			mcp.WithDescription("prscore grades GitHub pull requests against a weighted rubric using an analysis backend."),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("Use prscore_get_rubric to see the criteria, then prscore_analyze_pr or prscore_analyze_pr_file. Use prscore_format_report to tidy a response for sharing."),
		),
		services: services,
	}

	s.registerTools()
	return s, nil
}

type AnalyzePRArgs struct {
	PRURL       string `json:"pr_url" jsonschema:"description=GitHub pull request URL"`
	RubricFile  string `json:"rubric_file,omitempty" jsonschema:"description=Optional rubric YAML file; defaults to the workspace rubric"`
	StudentName string `json:"student_name,omitempty" jsonschema:"description=Optional student name recorded with the result"`
}

type AnalyzeFileArgs struct {
	PRURL       string `json:"pr_url" jsonschema:"description=GitHub pull request URL"`
	FilePath    string `json:"file_path" jsonschema:"description=Path of the file within the pull request"`
	RubricFile  string `json:"rubric_file,omitempty" jsonschema:"description=Optional rubric YAML file; defaults to the workspace rubric"`
	StudentName string `json:"student_name,omitempty" jsonschema:"description=Optional student name recorded with the result"`
}

type FormatArgs struct {
	Content string `json:"content" jsonschema:"description=Raw analysis text to reformat"`
}

type RepoArgs struct {
	URL string `json:"url" jsonschema:"description=Any GitHub URL"`
}

// CriterionView is one scored criterion as returned to MCP clients.
type CriterionView struct {
	Criterion       string   `json:"criterion"`
	Score           string   `json:"score"`
	Justification   string   `json:"justification,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// AnalysisView is the tool result for an analysis.
type AnalysisView struct {
	PullRequest string           `json:"pull_request,omitempty"`
	FilePath    string           `json:"file_path,omitempty"`
	Score       string           `json:"score"`
	Criteria    []CriterionView  `json:"criteria"`
	Report      string           `json:"report"`
	Result      *analysis.Result `json:"result"`
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("prscore_analyze_pr").
		Description("Analyze a whole pull request against the rubric").
		Handler(s.handleAnalyzePR)

	s.mcpServer.Tool("prscore_analyze_pr_file").
		Description("Analyze a single file of a pull request against the rubric").
		Handler(s.handleAnalyzePRFile)

	s.mcpServer.Tool("prscore_get_rubric").
		Description("Return the workspace rubric and its total weight").
		Handler(s.handleGetRubric)

	s.mcpServer.Tool("prscore_last_result").
		Description("Return the most recent saved analysis").
		Handler(s.handleLastResult)

	s.mcpServer.Tool("prscore_format_report").
		Description("Reformat raw analysis text for pasting into a review").
		Handler(s.handleFormat)

	s.mcpServer.Tool("prscore_extract_repo").
		Description("Extract owner and repository from a GitHub URL").
		Handler(s.handleExtractRepo)
}

func (s *Server) handleAnalyzePR(ctx context.Context, args AnalyzePRArgs) (any, error) {
	if strings.TrimSpace(args.PRURL) == "" {
		return nil, mcpErr("pr_url is required")
	}
	r, svc, err := s.prepare(args.RubricFile)
	if err != nil {
		return nil, err
	}

	result, err := svc.AnalyzeWholePR(ctx, args.PRURL, r)
	if err != nil {
		return nil, analysisErr(err)
	}
	s.save(ctx, args.PRURL, "", args.StudentName, r, result)
	return view(args.PRURL, "", r, result), nil
}

func (s *Server) handleAnalyzePRFile(ctx context.Context, args AnalyzeFileArgs) (any, error) {
	r, svc, err := s.prepare(args.RubricFile)
	if err != nil {
		return nil, err
	}

	result, err := svc.AnalyzeFileInPR(ctx, args.PRURL, args.FilePath, r)
	if err != nil {
		return nil, analysisErr(err)
	}
	s.save(ctx, args.PRURL, args.FilePath, args.StudentName, r, result)
	return view(args.PRURL, args.FilePath, r, result), nil
}

// prepare loads and validates the rubric and builds a dispatcher for one
// tool call. Calls may overlap on the HTTP transport and must not cancel
// each other.
func (s *Server) prepare(rubricFile string) (rubric.Rubric, *application.AnalysisService, error) {
	r, err := s.services.Workspace.LoadRubric(rubricFile)
	if err != nil {
		return rubric.Rubric{}, nil, mcpErr(fmt.Sprintf("Failed to load rubric: %v", err))
	}
	if err := r.Validate(); err != nil {
		return rubric.Rubric{}, nil, mcpErr(fmt.Sprintf("Invalid rubric: %v", err))
	}
	svc, err := s.services.NewAnalysisService()
	if err != nil {
		return rubric.Rubric{}, nil, mcpErr(fmt.Sprintf("Failed to start analysis: %v", err))
	}
	return r, svc, nil
}

func (s *Server) handleGetRubric(ctx context.Context, args struct{}) (any, error) {
	r, err := s.services.Workspace.LoadRubric("")
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to load rubric: %v", err))
	}
	return map[string]any{
		"criteria":     r.Items(),
		"total_weight": r.TotalWeight(),
	}, nil
}

func (s *Server) handleLastResult(ctx context.Context, args struct{}) (any, error) {
	saved, err := s.services.Workspace.Repo.LoadLastResult()
	if errors.Is(err, storage.ErrNoResult) {
		return nil, mcpErr("No saved analysis. Run prscore_analyze_pr first.")
	}
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to load saved analysis: %v", err))
	}
	return view(saved.PRURL, saved.FilePath, rubric.New(saved.Rubric...), saved.Result), nil
}

func (s *Server) handleFormat(ctx context.Context, args FormatArgs) (string, error) {
	return report.Format(args.Content), nil
}

func (s *Server) handleExtractRepo(ctx context.Context, args RepoArgs) (any, error) {
	info, ok := prurl.ExtractRepoInfo(args.URL)
	if !ok {
		return nil, mcpErr("Not a GitHub repository URL")
	}
	out := map[string]any{"owner": info.Owner, "repo": info.Repo}
	if ref, err := prurl.ParsePullRequest(args.URL); err == nil {
		out["number"] = ref.Number
	}
	return out, nil
}

// save records the result for later tools and announces it to webhooks.
func (s *Server) save(ctx context.Context, prURL, filePath, student string, r rubric.Rubric, result *analysis.Result) {
	err := s.services.Workspace.Repo.SaveLastResult(&storage.SavedResult{
		PRURL:       prURL,
		FilePath:    filePath,
		StudentName: student,
		Rubric:      r.Items(),
		SavedAt:     time.Now().UTC(),
		Result:      result,
	})
	if err != nil {
		s.services.Logger.Warn().Err(err).Msg("failed to save analysis")
	}
	go s.services.Publish(context.WithoutCancel(ctx), prURL, filePath, student, result, r)
}

func analysisErr(err error) error {
	if errors.Is(err, application.ErrFileRequestIncomplete) {
		return mcpErr("pr_url and file_path are both required")
	}
	return mcpErr(client.UserMessage(err))
}

func view(prURL, filePath string, r rubric.Rubric, result *analysis.Result) AnalysisView {
	summary := analysis.Summarize(result, r)
	v := AnalysisView{
		FilePath: filePath,
		Score:    summary.ScoreText(),
		Criteria: make([]CriterionView, 0, len(summary.Criteria)),
		Result:   result,
	}
	if ref, err := prurl.ParsePullRequest(prURL); err == nil {
		v.PullRequest = ref.String()
	}
	for _, c := range summary.Criteria {
		v.Criteria = append(v.Criteria, CriterionView{
			Criterion:       c.Criterion,
			Score:           c.ScoreText(),
			Justification:   c.Justification,
			Recommendations: c.Recommendations,
		})
	}
	if result.HasContent() {
		v.Report = report.Format(result.ClaudeResponse.Content)
	}
	return v
}

func (s *Server) Start() error {
	return s.ServeStdio(context.Background())
}

func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr, mcp.WithDefaultCORS())
}
