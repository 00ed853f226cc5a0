package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqa/internal/auth"
	"github.com/fyrsmithlabs/docqa/internal/document"
	"github.com/fyrsmithlabs/docqa/internal/qa"
	"github.com/fyrsmithlabs/docqa/internal/vectorstore"
)

type pageData struct {
	Title    string
	Username string
	IsAdmin  bool
	Error    string
	Notice   string
}

type chatData struct {
	pageData
	Filenames []string
	Selected  string
	History   []qa.Exchange
	Sources   []string
}

type adminData struct {
	pageData
	VectorCount int
	Users       []*auth.User
}

func (s *Server) basePage(c echo.Context, title string) pageData {
	data := pageData{Title: title}
	if session := currentSession(c); session != nil {
		data.Username = session.Username
		data.IsAdmin = session.IsAdmin
	}
	return data
}

func (s *Server) handleLoginPage(c echo.Context) error {
	if currentSession(c) != nil {
		return c.Redirect(http.StatusSeeOther, "/chat")
	}
	return c.Render(http.StatusOK, "login", s.basePage(c, "Log in"))
}

func (s *Server) handleLogin(c echo.Context) error {
	login := c.FormValue("login")
	password := c.FormValue("password")

	user, err := s.users.Authenticate(c.Request().Context(), login, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			data := s.basePage(c, "Log in")
			data.Error = "Invalid username or password."
			return c.Render(http.StatusUnauthorized, "login", data)
		}
		return err
	}

	session := s.sessions.Create(user)
	s.setSessionCookie(c, session.Token)
	return c.Redirect(http.StatusSeeOther, "/chat")
}

func (s *Server) handleRegisterPage(c echo.Context) error {
	if currentSession(c) != nil {
		return c.Redirect(http.StatusSeeOther, "/chat")
	}
	return c.Render(http.StatusOK, "register", s.basePage(c, "Register"))
}

func (s *Server) handleRegister(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := s.users.Register(ctx,
		c.FormValue("username"),
		c.FormValue("email"),
		c.FormValue("password"),
	)
	if err != nil {
		data := s.basePage(c, "Register")
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			data.Error = err.Error()
		case errors.Is(err, auth.ErrUserExists):
			data.Error = "That username or email is already taken."
			status = http.StatusConflict
		default:
			return err
		}
		return c.Render(status, "register", data)
	}

	session := s.sessions.Create(user)
	s.setSessionCookie(c, session.Token)
	return c.Redirect(http.StatusSeeOther, "/chat")
}

func (s *Server) handleLogout(c echo.Context) error {
	if cookie, err := c.Cookie(sessionCookie); err == nil {
		s.sessions.Destroy(cookie.Value)
		s.history.Drop(cookie.Value)
	}
	s.clearSessionCookie(c)
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (s *Server) handleChatPage(c echo.Context) error {
	return s.renderChat(c, http.StatusOK, chatData{})
}

// renderChat fills in the document selector and history before rendering.
// Pass partial data to carry an error, notice, or answer sources.
func (s *Server) renderChat(c echo.Context, status int, data chatData) error {
	ctx := c.Request().Context()
	session := currentSession(c)
	data.pageData.Title = "Chat"
	data.pageData.Username = session.Username
	data.pageData.IsAdmin = session.IsAdmin

	filenames, err := s.vectors.EnumerateFilenames(ctx, session.Username)
	if err != nil {
		s.logger.Error(ctx, "enumerating filenames", zap.Error(err))
		if data.Error == "" {
			data.Error = "Could not list your documents. Try again shortly."
		}
	} else {
		data.Filenames = filenames
	}

	data.History = s.history.Get(session.Token)
	return c.Render(status, "chat", data)
}

func (s *Server) handleUpload(c echo.Context) error {
	ctx := c.Request().Context()
	session := currentSession(c)

	fileHeader, err := c.FormFile("document")
	if err != nil {
		return s.renderChat(c, http.StatusBadRequest, chatData{pageData: pageData{Error: "Choose a file to upload."}})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	chunks, err := s.processor.Process(src, fileHeader.Filename, fileHeader.Size, document.Owner{
		Username: session.Username,
		UserID:   session.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, document.ErrUnsupportedType):
			return s.renderChat(c, http.StatusBadRequest, chatData{pageData: pageData{Error: "Unsupported file type. Upload a PDF, text, or markdown file."}})
		case errors.Is(err, document.ErrFileTooLarge):
			return s.renderChat(c, http.StatusRequestEntityTooLarge, chatData{pageData: pageData{Error: "That file is too large."}})
		case errors.Is(err, document.ErrEmptyDocument):
			return s.renderChat(c, http.StatusBadRequest, chatData{pageData: pageData{Error: "No readable text found in that file."}})
		default:
			s.logger.Error(ctx, "processing upload", zap.String("filename", fileHeader.Filename), zap.Error(err))
			return s.renderChat(c, http.StatusBadRequest, chatData{pageData: pageData{Error: "Could not read that file."}})
		}
	}

	if _, err := s.vectors.EnsureIndex(ctx); err != nil {
		s.logger.Error(ctx, "ensuring index", zap.Error(err))
		return s.renderChat(c, http.StatusBadGateway, chatData{pageData: pageData{Error: "The index is unavailable. Try again shortly."}})
	}

	count, err := s.vectors.Ingest(ctx, chunks)
	if err != nil {
		s.logger.Error(ctx, "ingesting document", zap.String("filename", fileHeader.Filename), zap.Error(err))
		return s.renderChat(c, http.StatusBadGateway, chatData{pageData: pageData{Error: "Indexing failed. Try again shortly."}})
	}

	s.logger.Info(ctx, "document indexed",
		zap.String("filename", fileHeader.Filename),
		zap.Int("chunks", count),
	)
	return s.renderChat(c, http.StatusOK, chatData{pageData: pageData{Notice: "Indexed " + fileHeader.Filename + "."}})
}

func (s *Server) handleAsk(c echo.Context) error {
	ctx := c.Request().Context()
	session := currentSession(c)

	question := c.FormValue("question")
	filename := c.FormValue("filename")

	scope := vectorstore.Scope{Username: session.Username, Filename: filename}
	retriever := s.vectors.NewRetriever(scope, s.topK)

	answer, err := s.answerer.Ask(ctx, question, retriever, s.history.Get(session.Token))
	if err != nil {
		if errors.Is(err, qa.ErrEmptyQuestion) {
			return s.renderChat(c, http.StatusBadRequest, chatData{Selected: filename, pageData: pageData{Error: "Type a question first."}})
		}
		s.logger.Error(ctx, "answering question", zap.Error(err))
		return s.renderChat(c, http.StatusBadGateway, chatData{Selected: filename, pageData: pageData{Error: "Could not get an answer. Try again shortly."}})
	}

	s.history.Append(session.Token, qa.Exchange{Question: question, Answer: answer.Text})
	return s.renderChat(c, http.StatusOK, chatData{Selected: filename, Sources: answer.Sources})
}

func (s *Server) handleAdminPage(c echo.Context) error {
	return s.renderAdmin(c, http.StatusOK, "")
}

func (s *Server) renderAdmin(c echo.Context, status int, errMsg string) error {
	ctx := c.Request().Context()
	data := adminData{pageData: s.basePage(c, "Administration")}
	data.Error = errMsg

	users, err := s.users.List(ctx)
	if err != nil {
		s.logger.Error(ctx, "listing users", zap.Error(err))
		if data.Error == "" {
			data.Error = "Could not list users."
		}
	} else {
		data.Users = users
	}

	stats, err := s.vectors.Stats(ctx)
	if err != nil {
		s.logger.Warn(ctx, "reading index stats", zap.Error(err))
	} else {
		data.VectorCount = stats.TotalVectorCount
	}

	return c.Render(status, "admin", data)
}

func (s *Server) handleDeleteAll(c echo.Context) error {
	ctx := c.Request().Context()

	outcome, err := s.vectors.DeleteAll(ctx)
	if err != nil {
		s.logger.Error(ctx, "deleting all vectors", zap.Error(err))
		return s.renderAdmin(c, http.StatusBadGateway, "Deletion failed. Check the index and retry.")
	}
	if outcome.Remaining > 0 {
		s.logger.Warn(ctx, "vectors remaining after bulk delete",
			zap.Int("remaining", outcome.Remaining))
	}
	return c.Redirect(http.StatusSeeOther, "/admin")
}

func (s *Server) handleDeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	session := currentSession(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	if id == session.UserID {
		return s.renderAdmin(c, http.StatusBadRequest, "You cannot delete your own account.")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return s.renderAdmin(c, http.StatusNotFound, "No such user.")
		}
		return err
	}

	// Vectors first: if their deletion fails the account survives and the
	// admin can retry, instead of stranding orphaned vectors.
	if _, err := s.vectors.DeleteForUser(ctx, user.Username); err != nil {
		s.logger.Error(ctx, "deleting user vectors",
			zap.String("username", user.Username), zap.Error(err))
		return s.renderAdmin(c, http.StatusBadGateway, "Could not delete the user's documents. Account kept.")
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.sessions.DestroyUser(id)

	s.logger.Info(ctx, "deleted user", zap.String("username", user.Username))
	return c.Redirect(http.StatusSeeOther, "/admin")
}
