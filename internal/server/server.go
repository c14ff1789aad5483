// Package server exposes the workspace over HTTP. It reads and writes the
// same markdown files as the CLI, loading fresh state per request, so edits
// made on disk while the server runs are always visible.
package server

import (
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"pillar/internal/entity"
	"pillar/internal/store"
)

// Server wires the HTTP routes to one workspace store.
type Server struct {
	store *store.Store
	log   zerolog.Logger
}

// New builds the fiber app with all API routes registered.
func New(st *store.Store, log zerolog.Logger) *fiber.App {
	srv := &Server{store: st, log: log}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "pillar",
	})

	app.Use(srv.logRequests)

	api := app.Group("/api")
	api.Get("/data", srv.getData)
	api.Post("/projects", srv.createProject)
	api.Patch("/projects/:id", srv.patchProject)
	api.Post("/milestones", srv.createMilestone)
	api.Patch("/milestones/:project/:title", srv.patchMilestone)
	api.Post("/issues", srv.createIssue)
	api.Patch("/issues/:project/:number", srv.patchIssue)
	api.Post("/comments", srv.addComment)

	return app
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	s.log.Info().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	return err
}

// fail maps store and validation errors onto HTTP status codes.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	var verr *entity.ValidationError

	switch {
	case errors.Is(err, store.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, store.ErrExists):
		status = fiber.StatusConflict
	case errors.As(err, &verr):
		status = fiber.StatusBadRequest
	}

	if status == fiber.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}

	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) getData(c *fiber.Ctx) error {
	snap, err := s.store.LoadAll()
	if err != nil {
		return s.fail(c, err)
	}

	for _, problem := range snap.Problems {
		s.log.Warn().Str("path", problem.Path).Err(problem.Err).Msg("skipped file")
	}

	for _, warning := range snap.Warnings {
		s.log.Warn().Msg(warning)
	}

	return c.JSON(BuildPayload(snap))
}

type projectRequest struct {
	ID          string  `json:"id"`
	Name        *string `json:"name"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	Description *string `json:"description"`
}

func (s *Server) createProject(c *fiber.Ctx) error {
	var req projectRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, &entity.ValidationError{Field: "body", Msg: err.Error()})
	}

	project := &entity.Project{
		ID:       req.ID,
		Status:   entity.StatusBacklog,
		Priority: entity.PriorityMedium,
	}

	if req.Name != nil {
		project.Name = *req.Name
	}

	if project.Name == "" {
		return s.fail(c, &entity.ValidationError{Field: "name", Msg: "required"})
	}

	if req.Description != nil {
		project.Description = *req.Description
	}

	if err := applyProjectFields(project, req); err != nil {
		return s.fail(c, err)
	}

	if err := s.store.CreateProject(project); err != nil {
		return s.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(FromProject(project))
}

func (s *Server) patchProject(c *fiber.Ctx) error {
	var req projectRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, &entity.ValidationError{Field: "body", Msg: err.Error()})
	}

	id, err := s.store.ResolveProject(c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}

	project, _, err := s.store.UpdateProject(id, func(p *entity.Project) error {
		if req.Name != nil {
			if *req.Name == "" {
				return &entity.ValidationError{Field: "name", Msg: "required"}
			}

			p.Name = *req.Name
		}

		if req.Description != nil {
			p.Description = *req.Description
		}

		return applyProjectFields(p, req)
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(FromProject(project))
}

func applyProjectFields(p *entity.Project, req projectRequest) error {
	if req.Status != nil {
		parsed, err := entity.ParseStatus(*req.Status)
		if err != nil {
			return err
		}

		p.Status = parsed
	}

	if req.Priority != nil {
		parsed, err := entity.ParsePriority(*req.Priority)
		if err != nil {
			return err
		}

		p.Priority = parsed
	}

	return nil
}

type milestoneRequest struct {
	Project     string  `json:"project"`
	Title       *string `json:"title"`
	Status      *string `json:"status"`
	TargetDate  *string `json:"target_date"`
	Description *string `json:"description"`
}

func (s *Server) createMilestone(c *fiber.Ctx) error {
	var req milestoneRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, &entity.ValidationError{Field: "body", Msg: err.Error()})
	}

	project, err := s.store.ResolveProject(req.Project)
	if err != nil {
		return s.fail(c, err)
	}

	milestone := &entity.Milestone{Project: project, Status: entity.StatusTodo}

	if req.Title != nil {
		milestone.Title = *req.Title
	}

	if milestone.Title == "" {
		return s.fail(c, &entity.ValidationError{Field: "title", Msg: "required"})
	}

	if req.Description != nil {
		milestone.Description = *req.Description
	}

	if err := applyMilestoneFields(milestone, req); err != nil {
		return s.fail(c, err)
	}

	if err := s.store.CreateMilestone(milestone); err != nil {
		return s.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(FromMilestone(milestone))
}

func (s *Server) patchMilestone(c *fiber.Ctx) error {
	var req milestoneRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, &entity.ValidationError{Field: "body", Msg: err.Error()})
	}

	project, err := s.store.ResolveProject(c.Params("project"))
	if err != nil {
		return s.fail(c, err)
	}

	title, err := url.PathUnescape(c.Params("title"))
	if err != nil {
		return s.fail(c, &entity.ValidationError{Field: "title", Msg: "bad escaping"})
	}

	milestone, _, err := s.store.UpdateMilestone(project, title, func(m *entity.Milestone) error {
		if req.Title != nil {
			if *req.Title == "" {
				return &entity.ValidationError{Field: "title", Msg: "required"}
			}

			m.Title = *req.Title
		}

		if req.Description != nil {
			m.Description = *req.Description
		}

		return applyMilestoneFields(m, req)
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(FromMilestone(milestone))
}

func applyMilestoneFields(m *entity.Milestone, req milestoneRequest) error {
	if req.Status != nil {
		parsed, err := entity.ParseStatus(*req.Status)
		if err != nil {
			return err
		}

		m.Status = parsed
	}

	if req.TargetDate != nil {
		if *req.TargetDate == "" {
			m.TargetDate = time.Time{}

			return nil
		}

		parsed, err := time.Parse(time.DateOnly, *req.TargetDate)
		if err != nil {
			return &entity.ValidationError{Field: "target_date", Msg: "not a YYYY-MM-DD date"}
		}

		m.TargetDate = parsed
	}

	return nil
}

type issueRequest struct {
	Project     string    `json:"project"`
	Title       *string   `json:"title"`
	Status      *string   `json:"status"`
	Priority    *string   `json:"priority"`
	Milestone   *string   `json:"milestone"`
	Tags        *[]string `json:"tags"`
	Description *string   `json:"description"`
}

func (s *Server) createIssue(c *fiber.Ctx) error {
	var req issueRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, &entity.ValidationError{Field: "body", Msg: err.Error()})
	}

	project, err := s.store.ResolveProject(req.Project)
	if err != nil {
		return s.fail(c, err)
	}

	issue := &entity.Issue{Project: project}

	if issue.Status, err = s.store.Config.DefaultStatus(); err != nil {
		return s.fail(c, err)
	}

	if issue.Priority, err = s.store.Config.DefaultPriority(); err != nil {
		return s.fail(c, err)
	}

	if req.Title != nil {
		issue.Title = *req.Title
	}

	if issue.Title == "" {
		return s.fail(c, &entity.ValidationError{Field: "title", Msg: "required"})
	}

	if req.Description != nil {
		issue.Description = *req.Description
	}

	if err := applyIssueFields(issue, req); err != nil {
		return s.fail(c, err)
	}

	if err := s.store.CreateIssue(issue); err != nil {
		return s.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(FromIssue(issue))
}

func (s *Server) patchIssue(c *fiber.Ctx) error {
	var req issueRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, &entity.ValidationError{Field: "body", Msg: err.Error()})
	}

	project, err := s.store.ResolveProject(c.Params("project"))
	if err != nil {
		return s.fail(c, err)
	}

	number, err := strconv.Atoi(c.Params("number"))
	if err != nil || number <= 0 {
		return s.fail(c, &entity.ValidationError{Field: "number", Msg: "not a positive integer"})
	}

	issue, _, err := s.store.UpdateIssue(project, number, func(i *entity.Issue) error {
		if req.Title != nil {
			if *req.Title == "" {
				return &entity.ValidationError{Field: "title", Msg: "required"}
			}

			i.Title = *req.Title
		}

		if req.Description != nil {
			i.Description = *req.Description
		}

		return applyIssueFields(i, req)
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(FromIssue(issue))
}

func applyIssueFields(i *entity.Issue, req issueRequest) error {
	if req.Status != nil {
		parsed, err := entity.ParseStatus(*req.Status)
		if err != nil {
			return err
		}

		i.Status = parsed
	}

	if req.Priority != nil {
		parsed, err := entity.ParsePriority(*req.Priority)
		if err != nil {
			return err
		}

		i.Priority = parsed
	}

	if req.Milestone != nil {
		i.Milestone = *req.Milestone
	}

	if req.Tags != nil {
		i.Tags = *req.Tags
	}

	return nil
}

type commentRequest struct {
	Project   string `json:"project"`
	Issue     int    `json:"issue"`
	Milestone string `json:"milestone"`
	Author    string `json:"author"`
	Content   string `json:"content"`
}

func (s *Server) addComment(c *fiber.Ctx) error {
	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, &entity.ValidationError{Field: "body", Msg: err.Error()})
	}

	if req.Content == "" {
		return s.fail(c, &entity.ValidationError{Field: "content", Msg: "required"})
	}

	if req.Issue != 0 && req.Milestone != "" {
		return s.fail(c, &entity.ValidationError{Field: "target", Msg: "issue and milestone are mutually exclusive"})
	}

	project, err := s.store.ResolveProject(req.Project)
	if err != nil {
		return s.fail(c, err)
	}

	author := req.Author
	if author == "" {
		author = "Unknown"
	}

	comment := entity.NewComment(author, req.Content)

	switch {
	case req.Issue != 0:
		_, _, err = s.store.UpdateIssue(project, req.Issue, func(i *entity.Issue) error {
			i.Comments = append(i.Comments, comment)

			return nil
		})
	case req.Milestone != "":
		_, _, err = s.store.UpdateMilestone(project, req.Milestone, func(m *entity.Milestone) error {
			m.Comments = append(m.Comments, comment)

			return nil
		})
	default:
		_, _, err = s.store.UpdateProject(project, func(p *entity.Project) error {
			p.Comments = append(p.Comments, comment)

			return nil
		})
	}

	if err != nil {
		return s.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(CommentDTO{
		ID:        comment.ID,
		Author:    comment.Author,
		Timestamp: stampString(comment.Timestamp),
		Content:   comment.Content,
	})
}
